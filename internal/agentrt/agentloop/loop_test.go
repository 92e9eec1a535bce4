package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/relaycore/agentrt/internal/agentrt/bus"
	"github.com/relaycore/agentrt/internal/agentrt/model"
	"github.com/relaycore/agentrt/internal/agentrt/provider"
	"github.com/relaycore/agentrt/internal/agentrt/safety"
	"github.com/relaycore/agentrt/internal/agentrt/session"
	"github.com/relaycore/agentrt/internal/agentrt/tool"
)

// scriptedProvider replays a fixed sequence of responses, one per
// Chat call, and errors if called more times than scripted.
type scriptedProvider struct {
	name      string
	responses []provider.LLMResponse
	errs      []error
	calls     int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Chat(ctx context.Context, messages []model.Message, tools []provider.ToolSpec, opts provider.Options) (provider.LLMResponse, error) {
	if p.calls >= len(p.responses) {
		return provider.LLMResponse{}, errors.New("scriptedProvider: no more scripted responses")
	}
	idx := p.calls
	p.calls++
	var err error
	if idx < len(p.errs) {
		err = p.errs[idx]
	}
	return p.responses[idx], err
}

func (p *scriptedProvider) ChatStream(ctx context.Context, messages []model.Message, tools []provider.ToolSpec, opts provider.Options) (<-chan provider.StreamEvent, error) {
	return nil, errors.New("not implemented")
}

// countingTool always returns a fixed string and counts invocations.
type countingTool struct {
	name  string
	calls int
}

func (t *countingTool) Name() string                { return t.name }
func (t *countingTool) Description() string         { return "test tool" }
func (t *countingTool) CompactDescription() string  { return "test tool" }
func (t *countingTool) Schema() json.RawMessage      { return json.RawMessage(`{}`) }
func (t *countingTool) Category() model.ToolCategory { return model.CategoryMemory }
func (t *countingTool) Execute(ctx context.Context, tc model.ToolContext, params json.RawMessage) (*model.ToolOutput, error) {
	t.calls++
	return &model.ToolOutput{ForLLM: "ok", UserVisible: "ok"}, nil
}

func newTestLoop(prov provider.Provider, maxIter int) (*Loop, session.Store, *tool.Registry) {
	registry := tool.NewRegistry()
	registry.Register(&countingTool{name: "echo"})
	store := session.NewMemoryStore()
	pipeline := safety.New(safety.DefaultConfig())
	b := bus.New(8, nil)
	l := New([]provider.Provider{prov}, registry, store, pipeline, b, Options{MaxToolIterations: maxIter})
	return l, store, registry
}

func TestProcessMessageNoToolCallsEndsImmediately(t *testing.T) {
	prov := &scriptedProvider{name: "p1", responses: []provider.LLMResponse{{Content: "hello there"}}}
	l, store, _ := newTestLoop(prov, 5)

	in := model.InboundMessage{Channel: "cli", SessionKey: "s1", Content: "hi"}
	text, err := l.ProcessMessage(context.Background(), in)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("got %q, want %q", text, "hello there")
	}

	sess, err := store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("expected 2 messages (user, assistant), got %d", len(sess.Messages))
	}
	if sess.Messages[0].Role != model.RoleUser || sess.Messages[1].Role != model.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", sess.Messages)
	}
}

func TestProcessMessageMaxIterationsZeroReturnsFirstResponse(t *testing.T) {
	resp := provider.LLMResponse{
		Content:   "calling a tool",
		ToolCalls: []model.ToolCall{{ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{}`)}},
	}
	prov := &scriptedProvider{name: "p1", responses: []provider.LLMResponse{resp}}
	// A negative option value pins the iteration bound to zero (zero
	// itself means "use the default").
	l, store, _ := newTestLoop(prov, -1)

	in := model.InboundMessage{Channel: "cli", SessionKey: "s2", Content: "go"}
	text, err := l.ProcessMessage(context.Background(), in)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if text != "calling a tool" {
		t.Fatalf("got %q, want the unexecuted first response content", text)
	}

	sess, err := store.Get(context.Background(), "s2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// User turn is always persisted, even though the tool loop never ran.
	if len(sess.Messages) != 2 {
		t.Fatalf("expected 2 messages (user, assistant), got %d: %+v", len(sess.Messages), sess.Messages)
	}
}

// TestProcessMessageToolLoopBoundedTrace drives a provider that
// always emits exactly one tool call, with
// MaxToolIterations=2. The loop must execute exactly 2 tool calls and
// make exactly 3 Chat calls, appending 3 assistant messages and 2 tool
// messages (plus the leading user turn): 6 messages total.
func TestProcessMessageToolLoopBoundedTrace(t *testing.T) {
	toolCall := model.ToolCall{ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{}`)}
	scripted := &scriptedProvider{
		name: "p1",
		responses: []provider.LLMResponse{
			{Content: "step 1", ToolCalls: []model.ToolCall{toolCall}},
			{Content: "step 2", ToolCalls: []model.ToolCall{toolCall}},
			{Content: "step 3", ToolCalls: []model.ToolCall{toolCall}},
		},
	}
	l, store, registry := newTestLoop(scripted, 2)

	in := model.InboundMessage{Channel: "cli", SessionKey: "s3", Content: "go"}
	text, err := l.ProcessMessage(context.Background(), in)
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if text != "step 3" {
		t.Fatalf("got %q, want the final response's content even though it still carries tool calls", text)
	}
	if scripted.calls != 3 {
		t.Fatalf("expected 3 Chat calls, got %d", scripted.calls)
	}

	echo, ok := registry.Get("echo")
	if !ok {
		t.Fatal("expected echo tool to be registered")
	}
	if echo.(*countingTool).calls != 2 {
		t.Fatalf("expected 2 tool executions, got %d", echo.(*countingTool).calls)
	}

	sess, err := store.Get(context.Background(), "s3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.Messages) != 6 {
		t.Fatalf("expected 6 messages (user, assistant, tool, assistant, tool, assistant), got %d: %+v", len(sess.Messages), sess.Messages)
	}
	wantRoles := []model.Role{model.RoleUser, model.RoleAssistant, model.RoleTool, model.RoleAssistant, model.RoleTool, model.RoleAssistant}
	for i, want := range wantRoles {
		if sess.Messages[i].Role != want {
			t.Errorf("message %d: got role %q, want %q", i, sess.Messages[i].Role, want)
		}
	}
}

func TestProcessMessageProviderFailureLeavesSessionUnchanged(t *testing.T) {
	prov := &scriptedProvider{
		name:      "p1",
		responses: []provider.LLMResponse{{}},
		errs:      []error{errors.New("boom")},
	}
	l, store, _ := newTestLoop(prov, 5)

	in := model.InboundMessage{Channel: "cli", SessionKey: "s4", Content: "hi"}
	_, err := l.ProcessMessage(context.Background(), in)
	if err == nil {
		t.Fatal("expected an error from the failing provider")
	}

	sess, err := store.Get(context.Background(), "s4")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.Messages) != 0 {
		t.Fatalf("expected session untouched after a first-call provider failure, got %d messages", len(sess.Messages))
	}
}

func TestStartStopNotReentrant(t *testing.T) {
	prov := &scriptedProvider{name: "p1", responses: []provider.LLMResponse{{Content: "ok"}}}
	l, _, _ := newTestLoop(prov, 5)

	done := make(chan error, 1)
	go func() { done <- l.Start(context.Background()) }()

	if err := l.Start(context.Background()); err == nil {
		t.Fatal("expected a second Start call to fail while already running")
	}
	l.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Start returned an error after Stop: %v", err)
	}
}

package delegate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/relaycore/agentrt/internal/agentrt/model"
	"github.com/relaycore/agentrt/internal/agentrt/provider"
	"github.com/relaycore/agentrt/internal/agentrt/safety"
	"github.com/relaycore/agentrt/internal/agentrt/tool"
)

// echoProvider returns a fixed response built from the last user
// message's content, so tests can assert the scratchpad was threaded
// into a sub-agent's prompt.
type echoProvider struct {
	prefix string
}

func (p *echoProvider) Name() string { return "echo" }

func (p *echoProvider) Chat(ctx context.Context, messages []model.Message, tools []provider.ToolSpec, opts provider.Options) (provider.LLMResponse, error) {
	var sys string
	for _, m := range messages {
		if m.Role == model.RoleSystem {
			sys = m.Content
		}
	}
	return provider.LLMResponse{Content: p.prefix + ":" + sys}, nil
}

func (p *echoProvider) ChatStream(ctx context.Context, messages []model.Message, tools []provider.ToolSpec, opts provider.Options) (<-chan provider.StreamEvent, error) {
	return nil, errors.New("not implemented")
}

func TestRunRejectsRecursion(t *testing.T) {
	d := NewDispatcher([]provider.Provider{&echoProvider{prefix: "r"}}, tool.NewRegistry(), safety.New(safety.DefaultConfig()), 1)
	_, err := d.Run(context.Background(), model.ToolContext{Channel: RecursionChannel}, Task{Role: "gatherer", Prompt: "go"})
	if err == nil {
		t.Fatal("expected a recursion-limit error")
	}
}

func TestRunUnknownRoleUsesGenericTemplate(t *testing.T) {
	d := NewDispatcher([]provider.Provider{&echoProvider{prefix: "r"}}, tool.NewRegistry(), safety.New(safety.DefaultConfig()), 1)
	out, err := d.Run(context.Background(), model.ToolContext{Channel: "cli"}, Task{Role: "unknown-role", Prompt: "go"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "helpful sub-agent") {
		t.Fatalf("expected generic template system prompt to surface in echo, got %q", out)
	}
}

func TestAggregateConcatenateDefault(t *testing.T) {
	d := NewDispatcher([]provider.Provider{&echoProvider{prefix: "r"}}, tool.NewRegistry(), safety.New(safety.DefaultConfig()), 2)
	merged, results, err := d.Aggregate(context.Background(), model.ToolContext{Channel: "cli"}, []Task{
		{Role: "gatherer", Prompt: "a"},
		{Role: "processor", Prompt: "b"},
	}, "")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !strings.Contains(merged, "[gatherer]:") || !strings.Contains(merged, "[processor]:") {
		t.Fatalf("expected concatenate-format output, got %q", merged)
	}
}

func TestAggregateSummarizeStrategy(t *testing.T) {
	d := NewDispatcher([]provider.Provider{&echoProvider{prefix: "r"}}, tool.NewRegistry(), safety.New(safety.DefaultConfig()), 2)
	merged, _, err := d.Aggregate(context.Background(), model.ToolContext{Channel: "cli"}, []Task{
		{Role: "gatherer", Prompt: "a"},
	}, "summarize")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !strings.Contains(merged, "## Aggregated Results") || !strings.Contains(merged, "### gatherer") {
		t.Fatalf("expected summarize markdown headings, got %q", merged)
	}
}

func TestAggregateRejectsRecursion(t *testing.T) {
	d := NewDispatcher([]provider.Provider{&echoProvider{prefix: "r"}}, tool.NewRegistry(), safety.New(safety.DefaultConfig()), 1)
	_, _, err := d.Aggregate(context.Background(), model.ToolContext{Channel: RecursionChannel}, []Task{{Role: "gatherer", Prompt: "a"}}, "")
	if err == nil {
		t.Fatal("expected a recursion-limit error")
	}
}

func TestMaxConcurrentZeroCoercedToDefault(t *testing.T) {
	d := NewDispatcher(nil, tool.NewRegistry(), safety.New(safety.DefaultConfig()), 0)
	if cap(d.sem) != DefaultMaxConcurrent {
		t.Fatalf("expected max_concurrent=0 to coerce to %d, got %d", DefaultMaxConcurrent, cap(d.sem))
	}
}

// Package delegate implements sub-agent delegation: a tool that
// spawns one or more fresh agentloop.Loop instances sharing the
// parent's provider, bounded by a counting semaphore, writing back
// to a scratchpad shared across a single aggregate batch.
package delegate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/relaycore/agentrt/internal/agentrt/agentloop"
	"github.com/relaycore/agentrt/internal/agentrt/bus"
	"github.com/relaycore/agentrt/internal/agentrt/errtype"
	"github.com/relaycore/agentrt/internal/agentrt/model"
	"github.com/relaycore/agentrt/internal/agentrt/provider"
	"github.com/relaycore/agentrt/internal/agentrt/safety"
	"github.com/relaycore/agentrt/internal/agentrt/session"
	"github.com/relaycore/agentrt/internal/agentrt/tool"
)

// DefaultMaxConcurrent is used when a request omits max_concurrent or
// sets it to 0.
const DefaultMaxConcurrent = 3

// RecursionChannel is the ToolContext.Channel value a dispatched
// sub-agent loop runs under; seeing this channel on the way in means
// a sub-agent is trying to delegate further, which is refused.
const RecursionChannel = "delegate"

// Scratchpad is the shared per-role output log threaded across every
// sub-agent in one aggregate batch.
type Scratchpad struct {
	mu      sync.Mutex
	entries map[string][]string
}

// NewScratchpad creates an empty Scratchpad.
func NewScratchpad() *Scratchpad {
	return &Scratchpad{entries: make(map[string][]string)}
}

// Append records output under role.
func (s *Scratchpad) Append(role, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[role] = append(s.entries[role], output)
}

// Context renders the scratchpad's current contents for inclusion in
// a sub-agent's system prompt, in stable role order.
func (s *Scratchpad) Context() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return ""
	}
	roles := make([]string, 0, len(s.entries))
	for role := range s.entries {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	var b strings.Builder
	b.WriteString("Prior sub-agent outputs:\n")
	for _, role := range roles {
		for _, out := range s.entries[role] {
			fmt.Fprintf(&b, "[%s]: %s\n", role, out)
		}
	}
	return b.String()
}

// RoleTemplate supplies a role's system-prompt fragment and an
// optional tool-name whitelist. An empty Tools slice means no
// whitelist (the sub-agent sees every registered tool).
type RoleTemplate struct {
	SystemPrompt string
	Tools        []string
}

var genericTemplate = RoleTemplate{
	SystemPrompt: "You are a helpful sub-agent. Complete the assigned task concisely and return only the result.",
}

// roleTemplates is the known-role table; an unknown role falls back
// to genericTemplate.
var roleTemplates = map[string]RoleTemplate{
	"gatherer": {
		SystemPrompt: "You are a research sub-agent. Gather and summarize the information requested, citing sources where given.",
	},
	"processor": {
		SystemPrompt: "You are a processing sub-agent. Transform the given input exactly as instructed, without adding commentary.",
	},
	"synthesizer": {
		SystemPrompt: "You are a synthesis sub-agent. Combine the provided inputs into a single coherent result.",
	},
	"validator": {
		SystemPrompt: "You are a validation sub-agent. Check the given work for correctness and report any issues found.",
	},
}

func templateFor(role string) RoleTemplate {
	if t, ok := roleTemplates[strings.ToLower(strings.TrimSpace(role))]; ok {
		return t
	}
	return genericTemplate
}

// whitelistRegistry returns a Registry containing only the tools
// named in allowed, or reg unchanged if allowed is empty.
func whitelistRegistry(reg *tool.Registry, allowed []string) *tool.Registry {
	if len(allowed) == 0 {
		return reg
	}
	scoped := tool.NewRegistry()
	for _, name := range allowed {
		if t, ok := reg.Get(name); ok {
			scoped.Register(t)
		}
	}
	return scoped
}

// Task is a single sub-agent dispatch request.
type Task struct {
	Role   string `json:"role"`
	Prompt string `json:"prompt"`
}

// Result is one sub-agent's outcome.
type Result struct {
	Role   string `json:"role"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Dispatcher runs sub-agent tasks, sharing the parent's provider set,
// tool registry, and safety pipeline but giving each sub-agent a
// fresh in-memory session and bus.
type Dispatcher struct {
	providers []provider.Provider
	tools     *tool.Registry
	pipeline  *safety.Pipeline
	sem       chan struct{}
}

// NewDispatcher creates a Dispatcher bounding concurrent sub-agents to
// maxConcurrent (0 or negative is coerced to DefaultMaxConcurrent, and
// any positive value is accepted as-is down to 1).
func NewDispatcher(providers []provider.Provider, tools *tool.Registry, pipeline *safety.Pipeline, maxConcurrent int) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Dispatcher{
		providers: providers,
		tools:     tools,
		pipeline:  pipeline,
		sem:       make(chan struct{}, maxConcurrent),
	}
}

// Run dispatches a single task and returns its sub-agent's final
// response text.
func (d *Dispatcher) Run(ctx context.Context, parentCtx model.ToolContext, task Task) (string, error) {
	if parentCtx.Channel == RecursionChannel {
		return "", errtype.New(errtype.KindTool, "recursion limit: sub-agents cannot delegate further")
	}
	return d.run(ctx, task, NewScratchpad())
}

// Aggregate dispatches every task concurrently (bounded by the
// semaphore), threading a single shared Scratchpad across the batch,
// and merges the results using the named strategy.
func (d *Dispatcher) Aggregate(ctx context.Context, parentCtx model.ToolContext, tasks []Task, strategy string) (string, []Result, error) {
	if parentCtx.Channel == RecursionChannel {
		return "", nil, errtype.New(errtype.KindTool, "recursion limit: sub-agents cannot delegate further")
	}

	pad := NewScratchpad()
	results := make([]Result, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			out, err := d.run(ctx, task, pad)
			if err != nil {
				results[i] = Result{Role: task.Role, Error: err.Error()}
				return
			}
			results[i] = Result{Role: task.Role, Output: out}
		}(i, task)
	}
	wg.Wait()

	return merge(results, strategy), results, nil
}

// run acquires a semaphore permit, builds a fresh sub-agent loop for
// role/prompt, and runs it to completion, writing its output back to
// pad before returning.
func (d *Dispatcher) run(ctx context.Context, task Task, pad *Scratchpad) (string, error) {
	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-d.sem }()

	tmpl := templateFor(task.Role)
	systemPrompt := tmpl.SystemPrompt
	if scratch := pad.Context(); scratch != "" {
		systemPrompt = systemPrompt + "\n\n" + scratch
	}

	scoped := whitelistRegistry(d.tools, tmpl.Tools)
	subSessions := session.NewMemoryStore()
	subBus := bus.New(1, nil)

	loop := agentloop.New(d.providers, scoped, subSessions, d.pipeline, subBus, agentloop.Options{
		SystemPrompt:      systemPrompt,
		MaxToolIterations: agentloop.DefaultOptions().MaxToolIterations,
	})

	in := model.InboundMessage{
		Channel:    RecursionChannel,
		SessionKey: "delegate:" + task.Role,
		Content:    task.Prompt,
	}
	out, err := loop.ProcessMessage(ctx, in)
	if err != nil {
		return "", err
	}
	pad.Append(task.Role, out)
	return out, nil
}

// merge combines results per strategy: "concatenate" (default, and
// the fallback for any unrecognized strategy) joins "[role]: text"
// blocks with blank lines; "summarize" produces a markdown document
// with a "## Aggregated Results" heading and one "### role"
// subsection per result.
func merge(results []Result, strategy string) string {
	switch strategy {
	case "summarize":
		var b strings.Builder
		b.WriteString("## Aggregated Results\n\n")
		for _, r := range results {
			fmt.Fprintf(&b, "### %s\n\n", r.Role)
			if r.Error != "" {
				fmt.Fprintf(&b, "Error: %s\n\n", r.Error)
				continue
			}
			fmt.Fprintf(&b, "%s\n\n", r.Output)
		}
		return strings.TrimRight(b.String(), "\n") + "\n"
	default:
		blocks := make([]string, 0, len(results))
		for _, r := range results {
			if r.Error != "" {
				blocks = append(blocks, fmt.Sprintf("[%s]: Error: %s", r.Role, r.Error))
				continue
			}
			blocks = append(blocks, fmt.Sprintf("[%s]: %s", r.Role, r.Output))
		}
		return strings.Join(blocks, "\n\n")
	}
}

// Params is the delegate tool's input shape: either a single task
// (action "run") or a batch (action "aggregate").
type Params struct {
	Action        string `json:"action"`
	Role          string `json:"role,omitempty"`
	Prompt        string `json:"prompt,omitempty"`
	Tasks         []Task `json:"tasks,omitempty"`
	Strategy      string `json:"strategy,omitempty"`
	MaxConcurrent int    `json:"max_concurrent,omitempty"`
}

// Tool adapts a Dispatcher to the tool.Tool trait so it can be
// registered into the shared registry as "delegate".
type Tool struct {
	providers []provider.Provider
	tools     *tool.Registry
	pipeline  *safety.Pipeline
}

// NewTool creates the delegate tool. Each invocation builds its own
// Dispatcher sized to that call's max_concurrent, since the bound is
// a per-call parameter rather than fixed at registration time.
func NewTool(providers []provider.Provider, tools *tool.Registry, pipeline *safety.Pipeline) *Tool {
	return &Tool{providers: providers, tools: tools, pipeline: pipeline}
}

func (t *Tool) Name() string { return "delegate" }

func (t *Tool) Description() string {
	return "Delegate a task (action=run) or a batch of tasks (action=aggregate) to fresh sub-agents. " +
		"Each task names a role and a prompt; aggregate accepts a merge strategy (concatenate or summarize)."
}

func (t *Tool) CompactDescription() string { return "Delegate tasks to sub-agents" }

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["run", "aggregate"]},
			"role": {"type": "string"},
			"prompt": {"type": "string"},
			"tasks": {"type": "array", "items": {"type": "object", "properties": {
				"role": {"type": "string"}, "prompt": {"type": "string"}
			}}},
			"strategy": {"type": "string", "enum": ["concatenate", "summarize"]},
			"max_concurrent": {"type": "integer"}
		},
		"required": ["action"]
	}`)
}

func (t *Tool) Category() model.ToolCategory { return model.CategoryMessaging }

func (t *Tool) Execute(ctx context.Context, tc model.ToolContext, params json.RawMessage) (*model.ToolOutput, error) {
	var p Params
	if err := json.Unmarshal(params, &p); err != nil {
		return &model.ToolOutput{ForLLM: "invalid delegate parameters: " + err.Error(), IsError: true}, nil
	}

	dispatcher := NewDispatcher(t.providers, t.tools, t.pipeline, p.MaxConcurrent)

	switch p.Action {
	case "run":
		out, err := dispatcher.Run(ctx, tc, Task{Role: p.Role, Prompt: p.Prompt})
		if err != nil {
			return &model.ToolOutput{ForLLM: err.Error(), IsError: true}, nil
		}
		return &model.ToolOutput{ForLLM: out, UserVisible: out}, nil

	case "aggregate":
		merged, results, err := dispatcher.Aggregate(ctx, tc, p.Tasks, p.Strategy)
		if err != nil {
			return &model.ToolOutput{ForLLM: err.Error(), IsError: true}, nil
		}
		_ = results
		return &model.ToolOutput{ForLLM: merged, UserVisible: merged}, nil

	default:
		return &model.ToolOutput{ForLLM: "unknown delegate action: " + p.Action, IsError: true}, nil
	}
}

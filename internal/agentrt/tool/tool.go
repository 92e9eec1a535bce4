// Package tool defines the Tool trait every agent capability implements
// and a concurrency-safe Registry that looks tools up by name at call
// time.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// Tool is the capability surface the agent loop dispatches tool calls
// through. Every concrete tool in internal/agentrt/tools implements
// this directly; plugin-backed tools implement it via plugintool.Tool.
type Tool interface {
	// Name is the LLM-facing function name. Must be stable across
	// restarts since it is persisted in session history.
	Name() string

	// Description is the full natural-language description passed to
	// the LLM for tool selection.
	Description() string

	// CompactDescription is a short one-line summary used when the
	// full description would push a request over its tool-listing
	// budget.
	CompactDescription() string

	// Schema is the JSON Schema describing Execute's params argument.
	Schema() json.RawMessage

	// Category classifies the tool for degraded-mode and policy
	// decisions.
	Category() model.ToolCategory

	// Execute runs the tool with params validated against Schema.
	Execute(ctx context.Context, tc model.ToolContext, params json.RawMessage) (*model.ToolOutput, error)
}

// Limits on tool invocation to prevent resource exhaustion from a
// malformed or adversarial tool call.
const (
	MaxNameLength = 256
	MaxParamsSize = 10 << 20 // 10MB
)

// Registry is a concurrency-safe name -> Tool lookup table. A
// degraded registry (set by the startup guard after repeated crashes)
// refuses dangerous tool categories at registration time.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	degraded bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// SetDegraded toggles degraded mode. Only registrations performed
// while degraded are affected; tools already registered stay.
func (r *Registry) SetDegraded(degraded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = degraded
}

// Degraded reports whether the registry refuses dangerous categories.
func (r *Registry) Degraded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.degraded
}

// Register adds a tool, silently replacing any existing tool with the
// same name. In degraded mode a tool whose category is dangerous is
// dropped instead, and Register reports false.
func (r *Registry) Register(t Tool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.degraded && model.DangerousCategories[t.Category()] {
		return false
	}
	r.tools[t.Name()] = t
	return true
}

// Unregister removes a tool by name. A no-op if absent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool in no particular order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Execute looks up name and runs it with params, applying the
// name-length and params-size caps before dispatch.
func (r *Registry) Execute(ctx context.Context, tc model.ToolContext, name string, params json.RawMessage) (*model.ToolOutput, error) {
	if len(name) > MaxNameLength {
		return &model.ToolOutput{
			ForLLM:  fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxNameLength),
			IsError: true,
		}, nil
	}
	if len(params) > MaxParamsSize {
		return &model.ToolOutput{
			ForLLM:  fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxParamsSize),
			IsError: true,
		}, nil
	}

	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return &model.ToolOutput{ForLLM: "tool not found: " + name, IsError: true}, nil
	}
	return t.Execute(ctx, tc, params)
}

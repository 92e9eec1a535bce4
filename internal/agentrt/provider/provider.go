// Package provider defines the abstract LLM provider contract plus
// the cross-cutting decorators (retry, cooldown, classification) that
// wrap any concrete provider.
package provider

import (
	"context"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// LLMResponse is the result of a single chat call: final text plus
// any tool calls the model wants executed next.
type LLMResponse struct {
	Content   string
	ToolCalls []model.ToolCall
}

// StreamEventKind distinguishes incremental text from the terminal
// event of a streaming response.
type StreamEventKind string

const (
	StreamEventDelta StreamEventKind = "delta"
	StreamEventDone  StreamEventKind = "done"
)

// StreamEvent is one item of a streaming chat response.
type StreamEvent struct {
	Kind     StreamEventKind
	Delta    string
	Response LLMResponse // populated only when Kind == StreamEventDone
}

// Options carries per-call overrides such as model selection.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Provider is the contract every concrete LLM backend implements.
type Provider interface {
	// Name identifies the provider for logging, cooldown, and
	// failover bookkeeping.
	Name() string
	// Chat performs one non-streaming completion call.
	Chat(ctx context.Context, messages []model.Message, tools []ToolSpec, opts Options) (LLMResponse, error)
	// ChatStream performs a streaming completion call, sending events
	// to the returned channel until it closes.
	ChatStream(ctx context.Context, messages []model.Message, tools []ToolSpec, opts Options) (<-chan StreamEvent, error)
}

// ToolSpec is the provider-agnostic tool schema passed to Chat/ChatStream.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

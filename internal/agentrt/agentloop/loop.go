// Package agentloop implements the end-to-end agent orchestration:
// bus -> session -> provider -> tool loop -> bus. It composes every
// other core package (provider, tool, session, safety, ratelimit)
// into the single control-flow the rest of the runtime wires up.
package agentloop

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/relaycore/agentrt/internal/agentrt/bus"
	"github.com/relaycore/agentrt/internal/agentrt/errtype"
	"github.com/relaycore/agentrt/internal/agentrt/model"
	"github.com/relaycore/agentrt/internal/agentrt/provider"
	"github.com/relaycore/agentrt/internal/agentrt/provider/classify"
	"github.com/relaycore/agentrt/internal/agentrt/provider/ratelimit"
	"github.com/relaycore/agentrt/internal/agentrt/safety"
	"github.com/relaycore/agentrt/internal/agentrt/session"
	"github.com/relaycore/agentrt/internal/agentrt/tool"
)

// Loop orchestrates one agent's chat-with-tools reasoning cycle: it
// owns a provider set (with cooldown-based fail-over), a tool
// registry, a session store, and a safety pipeline, and drains a Bus
// of inbound messages, publishing assistant replies back out.
type Loop struct {
	providersMu sync.RWMutex
	providers   []provider.Provider
	cooldown    *ratelimit.Tracker

	tools    *tool.Registry
	sessions session.Store
	safety   *safety.Pipeline
	bus      *bus.Bus
	opts     Options

	runMu      sync.Mutex
	running    bool
	shutdownCh chan struct{}
}

// New creates a Loop. providers are tried in order, skipping any
// currently in cooldown; at least one provider is required.
func New(providers []provider.Provider, tools *tool.Registry, sessions session.Store, pipeline *safety.Pipeline, b *bus.Bus, opts Options) *Loop {
	opts = mergeOptions(DefaultOptions(), opts)
	return &Loop{
		providers: providers,
		cooldown:  ratelimit.New(),
		tools:     tools,
		sessions:  sessions,
		safety:    pipeline,
		bus:       b,
		opts:      opts,
	}
}

// SetProviders swaps the configured provider set, e.g. after a config
// reload. Safe for concurrent use with ProcessMessage.
func (l *Loop) SetProviders(providers []provider.Provider) {
	l.providersMu.Lock()
	defer l.providersMu.Unlock()
	l.providers = providers
}

// acquireProvider returns the first configured provider not currently
// in cooldown. The tracker is consulted before dispatch so a
// cooling-down provider is skipped rather than retried internally.
func (l *Loop) acquireProvider(now time.Time) (provider.Provider, error) {
	l.providersMu.RLock()
	defer l.providersMu.RUnlock()
	if len(l.providers) == 0 {
		return nil, errtype.ErrNoProvider
	}
	for _, p := range l.providers {
		if !l.cooldown.IsInCooldown(p.Name(), now) {
			return p, nil
		}
	}
	// All providers are cooling down; fall back to the first rather
	// than fail outright, since a hard failure here would stall every
	// session until the longest cooldown clears.
	return l.providers[0], nil
}

func (l *Loop) recordOutcome(name string, err error) {
	now := clockNow()
	if err != nil {
		l.cooldown.RecordFailure(name, classify.Classify(err), now)
		return
	}
	l.cooldown.RecordSuccess(name)
}

// toolSpecs converts the registry's tools into provider.ToolSpec
// values for the next Chat/ChatStream call.
func (l *Loop) toolSpecs() []provider.ToolSpec {
	tools := l.tools.List()
	specs := make([]provider.ToolSpec, 0, len(tools))
	for _, t := range tools {
		var params map[string]any
		if schema := t.Schema(); len(schema) > 0 {
			_ = json.Unmarshal(schema, &params)
		}
		specs = append(specs, provider.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  params,
		})
	}
	return specs
}

// buildMessages assembles system prompt + session history + the new
// user turn, excluding any empty user turns from the history.
func buildMessages(systemPrompt string, history []model.Message, newUserContent string) []model.Message {
	out := make([]model.Message, 0, len(history)+2)
	if systemPrompt != "" {
		out = append(out, model.Message{Role: model.RoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		if m.Role == model.RoleUser && strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	if newUserContent != "" {
		out = append(out, model.Message{Role: model.RoleUser, Content: newUserContent})
	}
	return out
}

// ProcessMessage runs one full request/response cycle for in and
// returns the final assistant text.
func (l *Loop) ProcessMessage(ctx context.Context, in model.InboundMessage) (string, error) {
	// 1) Acquire the configured provider.
	prov, err := l.acquireProvider(clockNow())
	if err != nil {
		return "", err
	}

	// 2) Load or create the session.
	sess, err := l.sessions.Get(ctx, in.SessionKey)
	if err != nil {
		return "", errtype.Wrap(errtype.KindIO, err, "load session")
	}

	// 3) Build messages: system prompt + history + new user turn.
	messages := buildMessages(l.opts.SystemPrompt, sess.Messages, in.Content)
	toolSpecs := l.toolSpecs()

	// 4) First provider call.
	resp, err := prov.Chat(ctx, messages, toolSpecs, l.opts.providerOptions())
	if err != nil {
		l.recordOutcome(prov.Name(), err)
		return "", err
	}
	l.recordOutcome(prov.Name(), nil)

	// 5) Append the user turn to the session (after, not before, the
	// first provider call: a provider failure above must not leave an
	// orphan user turn).
	now := clockNow()
	if err := l.sessions.Append(ctx, in.SessionKey, model.Message{
		Role: model.RoleUser, Content: in.Content, CreatedAt: now,
	}); err != nil {
		return "", errtype.Wrap(errtype.KindIO, err, "persist user message")
	}

	toolCtx := model.ToolContext{Channel: in.Channel, ChatID: in.ChatID, Workspace: l.opts.Workspace}

	// 6) Tool loop.
	iter := 0
	for len(resp.ToolCalls) > 0 && iter < l.opts.MaxToolIterations {
		assistantMsg := model.Message{
			Role: model.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls, CreatedAt: clockNow(),
		}
		if err := l.sessions.Append(ctx, in.SessionKey, assistantMsg); err != nil {
			return "", errtype.Wrap(errtype.KindIO, err, "persist assistant message")
		}

		for _, call := range resp.ToolCalls {
			toolMsg := l.executeOne(ctx, toolCtx, call)
			if err := l.sessions.Append(ctx, in.SessionKey, toolMsg); err != nil {
				return "", errtype.Wrap(errtype.KindIO, err, "persist tool message")
			}
		}

		refreshed, err := l.sessions.Get(ctx, in.SessionKey)
		if err != nil {
			return "", errtype.Wrap(errtype.KindIO, err, "reload session")
		}
		nextMessages := buildMessages(l.opts.SystemPrompt, refreshed.Messages, "")

		resp, err = prov.Chat(ctx, nextMessages, toolSpecs, l.opts.providerOptions())
		if err != nil {
			l.recordOutcome(prov.Name(), err)
			return "", err
		}
		l.recordOutcome(prov.Name(), nil)
		iter++
	}

	// 7) Append the final assistant text; persist; return.
	finalMsg := model.Message{Role: model.RoleAssistant, Content: resp.Content, CreatedAt: clockNow()}
	if err := l.sessions.Append(ctx, in.SessionKey, finalMsg); err != nil {
		return "", errtype.Wrap(errtype.KindIO, err, "persist final assistant message")
	}
	return resp.Content, nil
}

// executeOne looks up and runs a single tool call, rendering failures
// as the literal "Error: <detail>" tool message and screening
// successes through the safety pipeline before they are appended.
func (l *Loop) executeOne(ctx context.Context, toolCtx model.ToolContext, call model.ToolCall) model.Message {
	out, err := l.tools.Execute(ctx, toolCtx, call.Name, call.Arguments)
	if err != nil {
		return model.Message{Role: model.RoleTool, Content: "Error: " + err.Error(), ToolCallID: call.ID, CreatedAt: clockNow()}
	}
	if out.IsError {
		return model.Message{Role: model.RoleTool, Content: "Error: " + out.ForLLM, ToolCallID: call.ID, CreatedAt: clockNow()}
	}

	result := l.safety.Run(out.ForLLM)
	if result.Blocked {
		reason := result.BlockReason
		if reason == "" && len(result.Warnings) > 0 {
			reason = strings.Join(result.Warnings, "; ")
		}
		if reason == "" {
			reason = "output blocked by safety pipeline"
		}
		return model.Message{Role: model.RoleTool, Content: "Error: " + reason, ToolCallID: call.ID, CreatedAt: clockNow()}
	}
	return model.Message{Role: model.RoleTool, Content: result.Content, ToolCallID: call.ID, CreatedAt: clockNow()}
}

// Start begins draining the Bus's inbound queue, publishing each
// result as an OutboundMessage, until Stop is called or the inbound
// channel closes. Start is not re-entrant.
func (l *Loop) Start(ctx context.Context) error {
	l.runMu.Lock()
	if l.running {
		l.runMu.Unlock()
		return errtype.ErrAlreadyRunning
	}
	l.running = true
	l.shutdownCh = make(chan struct{})
	shutdown := l.shutdownCh
	l.runMu.Unlock()

	for {
		select {
		case <-shutdown:
			return nil
		case in, ok := <-l.bus.Inbound():
			if !ok {
				return nil
			}
			text, err := l.ProcessMessage(ctx, in)
			if err != nil {
				if l.opts.Logger != nil {
					l.opts.Logger.Error("agent loop: process message failed", "error", err, "session_key", in.SessionKey)
				}
				continue
			}
			out := model.OutboundMessage{Channel: in.Channel, ChatID: in.ChatID, Content: text, SentAt: clockNow()}
			if err := l.bus.PublishOutbound(ctx, out); err != nil && l.opts.Logger != nil {
				l.opts.Logger.Warn("agent loop: publish outbound failed", "error", err)
			}
		}
	}
}

// Stop signals Start's select loop to break, even when the inbound
// channel is otherwise idle.
func (l *Loop) Stop() {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	close(l.shutdownCh)
}


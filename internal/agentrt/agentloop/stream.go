package agentloop

import (
	"context"

	"github.com/relaycore/agentrt/internal/agentrt/errtype"
	"github.com/relaycore/agentrt/internal/agentrt/model"
	"github.com/relaycore/agentrt/internal/agentrt/provider"
)

// ProcessMessageStream runs the same control flow as ProcessMessage
// but drives the provider via ChatStream, forwarding each Delta event
// on deltas as it arrives and resolving the final response from the
// stream's terminal Done event. deltas is closed when the cycle ends,
// whether it ends in success or error.
func (l *Loop) ProcessMessageStream(ctx context.Context, in model.InboundMessage, deltas chan<- string) (string, error) {
	defer close(deltas)

	prov, err := l.acquireProvider(clockNow())
	if err != nil {
		return "", err
	}

	sess, err := l.sessions.Get(ctx, in.SessionKey)
	if err != nil {
		return "", errtype.Wrap(errtype.KindIO, err, "load session")
	}

	messages := buildMessages(l.opts.SystemPrompt, sess.Messages, in.Content)
	toolSpecs := l.toolSpecs()

	resp, err := l.chatStreamOnce(ctx, prov, messages, toolSpecs, deltas)
	if err != nil {
		l.recordOutcome(prov.Name(), err)
		return "", err
	}
	l.recordOutcome(prov.Name(), nil)

	if err := l.sessions.Append(ctx, in.SessionKey, model.Message{
		Role: model.RoleUser, Content: in.Content, CreatedAt: clockNow(),
	}); err != nil {
		return "", errtype.Wrap(errtype.KindIO, err, "persist user message")
	}

	toolCtx := model.ToolContext{Channel: in.Channel, ChatID: in.ChatID, Workspace: l.opts.Workspace}

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

		resp, err = l.chatStreamOnce(ctx, prov, nextMessages, toolSpecs, deltas)
		if err != nil {
			l.recordOutcome(prov.Name(), err)
			return "", err
		}
		l.recordOutcome(prov.Name(), nil)
		iter++
	}

	finalMsg := model.Message{Role: model.RoleAssistant, Content: resp.Content, CreatedAt: clockNow()}
	if err := l.sessions.Append(ctx, in.SessionKey, finalMsg); err != nil {
		return "", errtype.Wrap(errtype.KindIO, err, "persist final assistant message")
	}
	return resp.Content, nil
}

// chatStreamOnce drains a single ChatStream call, forwarding Delta
// events on deltas and returning the Response carried by the
// terminal Done event.
func (l *Loop) chatStreamOnce(ctx context.Context, prov provider.Provider, messages []model.Message, toolSpecs []provider.ToolSpec, deltas chan<- string) (provider.LLMResponse, error) {
	events, err := prov.ChatStream(ctx, messages, toolSpecs, l.opts.providerOptions())
	if err != nil {
		return provider.LLMResponse{}, err
	}
	for ev := range events {
		switch ev.Kind {
		case provider.StreamEventDelta:
			select {
			case deltas <- ev.Delta:
			case <-ctx.Done():
				return provider.LLMResponse{}, ctx.Err()
			}
		case provider.StreamEventDone:
			return ev.Response, nil
		}
	}
	return provider.LLMResponse{}, errtype.New(errtype.KindProvider, "stream closed without a terminal event")
}

// Package openaicompat adapts OpenAI's chat completions API (and any
// OpenAI-compatible endpoint reachable via a custom base URL) to the
// runtime's Provider contract.
package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/relaycore/agentrt/internal/agentrt/model"
	"github.com/relaycore/agentrt/internal/agentrt/provider"
)

// Config configures the provider. BaseURL is optional and lets this
// same adapter target any OpenAI-compatible endpoint.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Provider implements provider.Provider against the OpenAI chat
// completions API.
type Provider struct {
	client       *openai.Client
	defaultModel string
}

// New creates an OpenAI-compatible Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openaicompat: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Provider{client: openai.NewClientWithConfig(clientCfg), defaultModel: cfg.DefaultModel}, nil
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) model(opts provider.Options) string {
	if opts.Model != "" {
		return opts.Model
	}
	return p.defaultModel
}

func (p *Provider) buildRequest(messages []model.Message, tools []provider.ToolSpec, opts provider.Options, stream bool) (openai.ChatCompletionRequest, error) {
	req := openai.ChatCompletionRequest{
		Model:  p.model(opts),
		Stream: stream,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{Content: msg.Content}
		switch msg.Role {
		case model.RoleSystem:
			oaiMsg.Role = openai.ChatMessageRoleSystem
		case model.RoleAssistant:
			oaiMsg.Role = openai.ChatMessageRoleAssistant
			for _, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
		case model.RoleTool:
			oaiMsg.Role = openai.ChatMessageRoleTool
			oaiMsg.ToolCallID = msg.ToolCallID
		default:
			oaiMsg.Role = openai.ChatMessageRoleUser
		}
		req.Messages = append(req.Messages, oaiMsg)
	}

	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return req, nil
}

// Chat performs a single non-streaming completion.
func (p *Provider) Chat(ctx context.Context, messages []model.Message, tools []provider.ToolSpec, opts provider.Options) (provider.LLMResponse, error) {
	req, err := p.buildRequest(messages, tools, opts, false)
	if err != nil {
		return provider.LLMResponse{}, err
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return provider.LLMResponse{}, fmt.Errorf("openaicompat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return provider.LLMResponse{}, fmt.Errorf("openaicompat: empty choices in response")
	}
	choice := resp.Choices[0]
	out := provider.LLMResponse{Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

// ChatStream performs a streaming completion, assembling partial tool
// call arguments across deltas as they arrive.
func (p *Provider) ChatStream(ctx context.Context, messages []model.Message, tools []provider.ToolSpec, opts provider.Options) (<-chan provider.StreamEvent, error) {
	req, err := p.buildRequest(messages, tools, opts, true)
	if err != nil {
		return nil, err
	}
	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openaicompat: %w", err)
	}

	events := make(chan provider.StreamEvent)
	go func() {
		defer close(events)
		defer stream.Close()

		var content string
		toolCallsByIndex := map[int]*model.ToolCall{}
		var order []int

		for {
			chunk, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				break
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta
			if delta.Content != "" {
				content += delta.Content
				events <- provider.StreamEvent{Kind: provider.StreamEventDelta, Delta: delta.Content}
			}
			for _, tc := range delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				call, ok := toolCallsByIndex[idx]
				if !ok {
					call = &model.ToolCall{}
					toolCallsByIndex[idx] = call
					order = append(order, idx)
				}
				if tc.ID != "" {
					call.ID = tc.ID
				}
				if tc.Function.Name != "" {
					call.Name = tc.Function.Name
				}
				call.Arguments = append(call.Arguments, []byte(tc.Function.Arguments)...)
			}
		}

		var toolCalls []model.ToolCall
		for _, idx := range order {
			toolCalls = append(toolCalls, *toolCallsByIndex[idx])
		}
		events <- provider.StreamEvent{
			Kind:     provider.StreamEventDone,
			Response: provider.LLMResponse{Content: content, ToolCalls: toolCalls},
		}
	}()
	return events, nil
}

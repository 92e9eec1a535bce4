// Package anthropic adapts Anthropic's Claude API to the runtime's
// Provider contract: message and tool conversion plus streaming event
// processing, without beta/computer-use/thinking paths.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/relaycore/agentrt/internal/agentrt/model"
	"github.com/relaycore/agentrt/internal/agentrt/provider"
)

// Config configures the Anthropic provider.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Provider implements provider.Provider against Anthropic's Messages API.
type Provider struct {
	client       anthropic.Client
	defaultModel string
}

// New creates an Anthropic-backed Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Provider{client: anthropic.NewClient(opts...), defaultModel: cfg.DefaultModel}, nil
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) model(opts provider.Options) anthropic.Model {
	if opts.Model != "" {
		return anthropic.Model(opts.Model)
	}
	return anthropic.Model(p.defaultModel)
}

func maxTokens(opts provider.Options) int64 {
	if opts.MaxTokens > 0 {
		return int64(opts.MaxTokens)
	}
	return 4096
}

func (p *Provider) buildParams(messages []model.Message, tools []provider.ToolSpec, opts provider.Options) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model(opts),
		MaxTokens: maxTokens(opts),
	}

	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
			continue
		}
		var content []anthropic.ContentBlockParamUnion
		if msg.Content != "" {
			content = append(content, anthropic.NewTextBlock(msg.Content))
		}
		if msg.Role == model.RoleTool {
			content = append(content, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
		}
		for _, tc := range msg.ToolCalls {
			var input map[string]any
			if len(tc.Arguments) > 0 {
				if err := json.Unmarshal(tc.Arguments, &input); err != nil {
					return params, fmt.Errorf("anthropic: invalid tool call arguments: %w", err)
				}
			}
			content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
		}
		if len(content) == 0 {
			continue
		}
		if msg.Role == model.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(content...))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(content...))
		}
	}

	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if t.Parameters != nil {
			if raw, err := json.Marshal(t.Parameters); err == nil {
				_ = json.Unmarshal(raw, &schema)
			}
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if toolParam.OfTool != nil {
			toolParam.OfTool.Description = anthropic.String(t.Description)
		}
		params.Tools = append(params.Tools, toolParam)
	}

	return params, nil
}

// Chat performs a single non-streaming completion.
func (p *Provider) Chat(ctx context.Context, messages []model.Message, tools []provider.ToolSpec, opts provider.Options) (provider.LLMResponse, error) {
	params, err := p.buildParams(messages, tools, opts)
	if err != nil {
		return provider.LLMResponse{}, err
	}
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return provider.LLMResponse{}, wrapError(err)
	}

	var resp provider.LLMResponse
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content += variant.Text
		case anthropic.ToolUseBlock:
			input, _ := json.Marshal(variant.Input)
			resp.ToolCalls = append(resp.ToolCalls, model.ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: input,
			})
		}
	}
	return resp, nil
}

// ChatStream performs a streaming completion, translating Anthropic's
// SSE events into the runtime's StreamEvent sequence.
func (p *Provider) ChatStream(ctx context.Context, messages []model.Message, tools []provider.ToolSpec, opts provider.Options) (<-chan provider.StreamEvent, error) {
	params, err := p.buildParams(messages, tools, opts)
	if err != nil {
		return nil, err
	}
	stream := p.client.Messages.NewStreaming(ctx, params)

	events := make(chan provider.StreamEvent)
	go func() {
		defer close(events)
		var content string
		var toolCalls []model.ToolCall
		var currentToolID, currentToolName string
		var currentToolInput []byte

		for stream.Next() {
			evt := stream.Current()
			switch evt.Type {
			case "content_block_start":
				start := evt.AsContentBlockStart()
				if tu := start.ContentBlock.AsToolUse(); tu.Type == "tool_use" {
					currentToolID, currentToolName = tu.ID, tu.Name
					currentToolInput = nil
				}
			case "content_block_delta":
				delta := evt.AsContentBlockDelta()
				switch delta.Delta.Type {
				case "text_delta":
					if delta.Delta.Text != "" {
						content += delta.Delta.Text
						events <- provider.StreamEvent{Kind: provider.StreamEventDelta, Delta: delta.Delta.Text}
					}
				case "input_json_delta":
					currentToolInput = append(currentToolInput, []byte(delta.Delta.PartialJSON)...)
				}
			case "content_block_stop":
				if currentToolName != "" {
					toolCalls = append(toolCalls, model.ToolCall{
						ID:        currentToolID,
						Name:      currentToolName,
						Arguments: append([]byte(nil), currentToolInput...),
					})
					currentToolName = ""
				}
			case "message_stop":
				events <- provider.StreamEvent{
					Kind:     provider.StreamEventDone,
					Response: provider.LLMResponse{Content: content, ToolCalls: toolCalls},
				}
				return
			}
		}
		if err := stream.Err(); err != nil {
			events <- provider.StreamEvent{
				Kind:     provider.StreamEventDone,
				Response: provider.LLMResponse{Content: content, ToolCalls: toolCalls},
			}
		}
	}()
	return events, nil
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("anthropic: %w", err)
}

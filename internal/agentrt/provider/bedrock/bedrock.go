// Package bedrock adapts AWS Bedrock's Claude models to the runtime's
// Provider contract via InvokeModel, for deployments that route LLM
// traffic through AWS rather than calling Anthropic directly. The
// adapter mirrors the request/response shape of
// internal/agentrt/provider/anthropic (same underlying Messages API
// schema) while substituting the aws-sdk-go-v2 bedrockruntime client
// for transport.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/relaycore/agentrt/internal/agentrt/model"
	"github.com/relaycore/agentrt/internal/agentrt/provider"
)

// Config configures the Bedrock provider.
type Config struct {
	Region       string
	DefaultModel string
}

// Provider implements provider.Provider against Bedrock's
// InvokeModel API using Anthropic's Messages wire format, which
// Bedrock accepts natively for Claude models.
type Provider struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// New creates a Bedrock-backed Provider, loading AWS credentials from
// the default provider chain (environment, shared config, IMDS).
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: load AWS config: %w", err)
	}
	return &Provider{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *Provider) Name() string { return "bedrock" }

// bedrockMessage and bedrockRequest mirror the subset of Anthropic's
// Messages API schema Bedrock's InvokeModel accepts for Claude models.
type bedrockContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type bedrockMessage struct {
	Role    string           `json:"role"`
	Content []bedrockContent `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockResponse struct {
	Content []bedrockContent `json:"content"`
}

func (p *Provider) buildBody(messages []model.Message, opts provider.Options) ([]byte, error) {
	req := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        opts.MaxTokens,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 4096
	}
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			req.System = msg.Content
			continue
		}
		role := "user"
		if msg.Role == model.RoleAssistant {
			role = "assistant"
		}
		var content []bedrockContent
		if msg.Content != "" {
			content = append(content, bedrockContent{Type: "text", Text: msg.Content})
		}
		for _, tc := range msg.ToolCalls {
			content = append(content, bedrockContent{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: tc.Arguments})
		}
		if len(content) == 0 {
			continue
		}
		req.Messages = append(req.Messages, bedrockMessage{Role: role, Content: content})
	}
	return json.Marshal(req)
}

func (p *Provider) modelID(opts provider.Options) string {
	if opts.Model != "" {
		return opts.Model
	}
	return p.defaultModel
}

// Chat performs a single non-streaming InvokeModel call.
func (p *Provider) Chat(ctx context.Context, messages []model.Message, tools []provider.ToolSpec, opts provider.Options) (provider.LLMResponse, error) {
	body, err := p.buildBody(messages, opts)
	if err != nil {
		return provider.LLMResponse{}, fmt.Errorf("bedrock: build request body: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID(opts)),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return provider.LLMResponse{}, fmt.Errorf("bedrock: invoke model: %w", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return provider.LLMResponse{}, fmt.Errorf("bedrock: decode response: %w", err)
	}

	var result provider.LLMResponse
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Content += block.Text
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, model.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	return result, nil
}

// ChatStream performs a streaming InvokeModelWithResponseStream call.
func (p *Provider) ChatStream(ctx context.Context, messages []model.Message, tools []provider.ToolSpec, opts provider.Options) (<-chan provider.StreamEvent, error) {
	body, err := p.buildBody(messages, opts)
	if err != nil {
		return nil, fmt.Errorf("bedrock: build request body: %w", err)
	}

	out, err := p.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(p.modelID(opts)),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock: invoke model stream: %w", err)
	}

	events := make(chan provider.StreamEvent)
	go func() {
		defer close(events)
		stream := out.GetStream()
		defer stream.Close()

		var content string
		var toolCalls []model.ToolCall
		var currentID, currentName string
		var currentInput []byte

		for evt := range stream.Events() {
			memberChunk, ok := evt.(*types.ResponseStreamMemberChunk)
			if !ok {
				continue
			}
			var streamEvt bedrockStreamEvent
			if err := json.Unmarshal(memberChunk.Value.Bytes, &streamEvt); err != nil {
				continue
			}
			switch streamEvt.Type {
			case "content_block_start":
				if streamEvt.ContentBlock != nil && streamEvt.ContentBlock.Type == "tool_use" {
					currentID = streamEvt.ContentBlock.ID
					currentName = streamEvt.ContentBlock.Name
					currentInput = nil
				}
			case "content_block_delta":
				if streamEvt.Delta == nil {
					continue
				}
				if streamEvt.Delta.Text != "" {
					content += streamEvt.Delta.Text
					events <- provider.StreamEvent{Kind: provider.StreamEventDelta, Delta: streamEvt.Delta.Text}
				}
				if streamEvt.Delta.PartialJSON != "" {
					currentInput = append(currentInput, []byte(streamEvt.Delta.PartialJSON)...)
				}
			case "content_block_stop":
				if currentName != "" {
					toolCalls = append(toolCalls, model.ToolCall{
						ID:        currentID,
						Name:      currentName,
						Arguments: append([]byte(nil), currentInput...),
					})
					currentName = ""
				}
			case "message_stop":
				events <- provider.StreamEvent{
					Kind:     provider.StreamEventDone,
					Response: provider.LLMResponse{Content: content, ToolCalls: toolCalls},
				}
				return
			}
		}
		events <- provider.StreamEvent{
			Kind:     provider.StreamEventDone,
			Response: provider.LLMResponse{Content: content, ToolCalls: toolCalls},
		}
	}()
	return events, nil
}

// bedrockStreamEvent covers the subset of Anthropic-on-Bedrock's
// streamed event envelope this adapter needs: block start (tool name
// and id), delta (text or partial tool-input JSON), and the two
// terminal markers.
type bedrockStreamEvent struct {
	Type         string `json:"type"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"content_block,omitempty"`
	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text,omitempty"`
		PartialJSON string `json:"partial_json,omitempty"`
	} `json:"delta,omitempty"`
}

// Package webfetch implements a network-read tool that fetches an
// HTTP(S) URL through the ssrf-validating client: scheme/hostname
// checks up front, DNS-pinned dialing, bounded redirects.
package webfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/relaycore/agentrt/internal/agentrt/errtype"
	"github.com/relaycore/agentrt/internal/agentrt/model"
	"github.com/relaycore/agentrt/internal/agentrt/ssrf"
)

// DefaultTimeout bounds one fetch end to end, redirects included.
const DefaultTimeout = 30 * time.Second

// MaxBodyBytes caps how much of a response body is read; the safety
// pipeline's length cap applies afterward, this bound protects the
// process from unbounded reads.
const MaxBodyBytes = 2 << 20 // 2MB

// Params is the webfetch tool's input shape.
type Params struct {
	URL string `json:"url"`
}

// Tool fetches public HTTP(S) URLs for the model.
type Tool struct {
	client *http.Client
}

// NewTool creates the webfetch tool with its own validating client.
func NewTool() *Tool {
	return &Tool{client: ssrf.NewValidatingClient(DefaultTimeout)}
}

func (t *Tool) Name() string { return "web_fetch" }

func (t *Tool) Description() string {
	return "Fetch the contents of a public http(s) URL. Private, local, and link-local addresses are refused."
}

func (t *Tool) CompactDescription() string { return "Fetch a public URL" }

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {"type": "string"}
		},
		"required": ["url"]
	}`)
}

func (t *Tool) Category() model.ToolCategory { return model.CategoryNetworkRead }

func (t *Tool) Execute(ctx context.Context, tc model.ToolContext, params json.RawMessage) (*model.ToolOutput, error) {
	var p Params
	if err := json.Unmarshal(params, &p); err != nil {
		return &model.ToolOutput{ForLLM: "invalid web_fetch parameters: " + err.Error(), IsError: true}, nil
	}

	u, err := ssrf.ValidateURL(p.URL)
	if err != nil {
		return nil, errtype.Wrap(errtype.KindSecurityViolation, err, "url refused")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &model.ToolOutput{ForLLM: "build request: " + err.Error(), IsError: true}, nil
	}
	resp, err := t.client.Do(req)
	if err != nil {
		// The pinned dialer re-validates resolved addresses; a blocked
		// resolution surfaces here and must stay a security violation,
		// not a plain fetch failure.
		var blocked *ssrf.ErrBlockedHost
		if errors.As(err, &blocked) {
			return nil, errtype.Wrap(errtype.KindSecurityViolation, blocked, "url refused")
		}
		return &model.ToolOutput{ForLLM: "fetch failed: " + err.Error(), IsError: true}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return &model.ToolOutput{ForLLM: "read body: " + err.Error(), IsError: true}, nil
	}
	if resp.StatusCode >= 400 {
		return &model.ToolOutput{
			ForLLM:  fmt.Sprintf("HTTP %d from %s: %s", resp.StatusCode, u.Host, string(body)),
			IsError: true,
		}, nil
	}
	return &model.ToolOutput{ForLLM: string(body)}, nil
}

// Package payments implements a payments-category tool: Stripe
// webhook signature verification and the runtime's idempotency key
// format.
package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// SignatureTolerance is the maximum allowed drift between a webhook's
// claimed timestamp and now.
const SignatureTolerance = 300 * time.Second

// VerifyWebhook parses a Stripe-Signature header value
// ("t=<unix_seconds>,v1=<hex>[,v0=<hex>...]"), rejects a timestamp
// further than SignatureTolerance from now, and checks the v1 HMAC in
// constant time against HMAC-SHA256(secret, "<t>.<body>").
func VerifyWebhook(secret, header, body string, now time.Time) error {
	fields := make(map[string]string)
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		fields[kv[0]] = kv[1]
	}

	tRaw, ok := fields["t"]
	if !ok {
		return fmt.Errorf("stripe signature missing timestamp field")
	}
	tSeconds, err := strconv.ParseInt(tRaw, 10, 64)
	if err != nil {
		return fmt.Errorf("stripe signature timestamp is not an integer: %w", err)
	}
	ts := time.Unix(tSeconds, 0)
	drift := now.Sub(ts)
	if drift < 0 {
		drift = -drift
	}
	if drift > SignatureTolerance {
		return fmt.Errorf("stripe signature timestamp outside tolerance")
	}

	v1, ok := fields["v1"]
	if !ok {
		return fmt.Errorf("stripe signature missing v1 field")
	}

	signedPayload := tRaw + "." + body
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	want := hex.EncodeToString(mac.Sum(nil))

	gotBytes, err := hex.DecodeString(v1)
	if err != nil {
		return fmt.Errorf("stripe signature v1 is not valid hex: %w", err)
	}
	wantBytes, _ := hex.DecodeString(want)
	if !hmac.Equal(gotBytes, wantBytes) {
		return fmt.Errorf("stripe signature mismatch")
	}
	return nil
}

// idempotencySeq is the process-global monotonic counter used in
// NewIdempotencyKey.
var idempotencySeq atomic.Uint64

// NewIdempotencyKey builds a payment-creation idempotency key:
// "zc_" + hex(nanos) + "_" + hex(pid) + "_" + hex(seq).
func NewIdempotencyKey(nowNanos int64) string {
	seq := idempotencySeq.Add(1)
	return fmt.Sprintf("zc_%x_%x_%x", nowNanos, os.Getpid(), seq)
}

// Params is the payments tool's input shape.
type Params struct {
	Action   string `json:"action"` // "verify_webhook" | "new_idempotency_key"
	Secret   string `json:"secret,omitempty"`
	Header   string `json:"signature_header,omitempty"`
	Body     string `json:"body,omitempty"`
	NowNanos int64  `json:"now_nanos,omitempty"`
	NowUnix  int64  `json:"now_unix,omitempty"`
}

// Tool adapts VerifyWebhook/NewIdempotencyKey to the tool.Tool trait.
type Tool struct{}

// NewTool creates the payments tool.
func NewTool() *Tool { return &Tool{} }

func (t *Tool) Name() string        { return "payments" }
func (t *Tool) Description() string {
	return "Verify a Stripe webhook signature (action=verify_webhook) or mint a process-unique idempotency key (action=new_idempotency_key)."
}
func (t *Tool) CompactDescription() string { return "Stripe webhook verification and idempotency keys" }

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["verify_webhook", "new_idempotency_key"]},
			"secret": {"type": "string"},
			"signature_header": {"type": "string"},
			"body": {"type": "string"}
		},
		"required": ["action"]
	}`)
}

func (t *Tool) Category() model.ToolCategory { return model.CategoryNetworkWrite }

func (t *Tool) Execute(ctx context.Context, tc model.ToolContext, params json.RawMessage) (*model.ToolOutput, error) {
	var p Params
	if err := json.Unmarshal(params, &p); err != nil {
		return &model.ToolOutput{ForLLM: "invalid payments parameters: " + err.Error(), IsError: true}, nil
	}

	switch p.Action {
	case "verify_webhook":
		now := time.Now()
		if p.NowUnix != 0 {
			now = time.Unix(p.NowUnix, 0)
		}
		if err := VerifyWebhook(p.Secret, p.Header, p.Body, now); err != nil {
			return &model.ToolOutput{ForLLM: err.Error(), IsError: true}, nil
		}
		return &model.ToolOutput{ForLLM: "signature valid", UserVisible: "signature valid"}, nil

	case "new_idempotency_key":
		nanos := p.NowNanos
		if nanos == 0 {
			nanos = time.Now().UnixNano()
		}
		key := NewIdempotencyKey(nanos)
		return &model.ToolOutput{ForLLM: key, UserVisible: key}, nil

	default:
		return &model.ToolOutput{ForLLM: "unknown payments action: " + p.Action, IsError: true}, nil
	}
}

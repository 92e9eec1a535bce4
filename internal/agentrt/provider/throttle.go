package provider

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// throttledProvider wraps a Provider with a token-bucket rate limiter
// sitting in front of the retry decorator: callers wait for a token
// before either Chat or ChatStream dispatches to the inner provider,
// bounding sustained request rate independently of retry backoff.
type throttledProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps inner with a token-bucket limiter allowing
// ratePerSecond steady-state requests and up to burst in a burst.
func WithRateLimit(inner Provider, ratePerSecond float64, burst int) Provider {
	if burst <= 0 {
		burst = 1
	}
	return &throttledProvider{inner: inner, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (p *throttledProvider) Name() string { return p.inner.Name() }

func (p *throttledProvider) Chat(ctx context.Context, messages []model.Message, tools []ToolSpec, opts Options) (LLMResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return LLMResponse{}, err
	}
	return p.inner.Chat(ctx, messages, tools, opts)
}

func (p *throttledProvider) ChatStream(ctx context.Context, messages []model.Message, tools []ToolSpec, opts Options) (<-chan StreamEvent, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.ChatStream(ctx, messages, tools, opts)
}

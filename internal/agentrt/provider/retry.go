package provider

import (
	"context"
	"math"
	"time"

	"github.com/relaycore/agentrt/internal/agentrt/errtype"
	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// RetryConfig bounds retry behavior: a base delay, a cap, and an
// attempt count.
type RetryConfig struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

// DefaultRetryConfig returns a conservative 3-attempt policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, Base: 500 * time.Millisecond, Max: 30 * time.Second}
}

// retryingProvider wraps a Provider, retrying retryable errors with
// exponential backoff plus deterministic jitter.
type retryingProvider struct {
	inner Provider
	cfg   RetryConfig
}

// WithRetry decorates inner with retry behavior. Name() delegates to
// the inner provider so the decorator stays transparent to callers.
func WithRetry(inner Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig()
	}
	return &retryingProvider{inner: inner, cfg: cfg}
}

func (r *retryingProvider) Name() string { return r.inner.Name() }

func (r *retryingProvider) Chat(ctx context.Context, messages []model.Message, tools []ToolSpec, opts Options) (LLMResponse, error) {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		resp, err := r.inner.Chat(ctx, messages, tools, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !errtype.Retryable(err) {
			return LLMResponse{}, err
		}
		if attempt == r.cfg.MaxAttempts-1 {
			break
		}
		if sleepErr := r.sleep(ctx, attempt); sleepErr != nil {
			return LLMResponse{}, sleepErr
		}
	}
	return LLMResponse{}, lastErr
}

func (r *retryingProvider) ChatStream(ctx context.Context, messages []model.Message, tools []ToolSpec, opts Options) (<-chan StreamEvent, error) {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		events, err := r.inner.ChatStream(ctx, messages, tools, opts)
		if err == nil {
			return events, nil
		}
		lastErr = err
		if !errtype.Retryable(err) {
			return nil, err
		}
		if attempt == r.cfg.MaxAttempts-1 {
			break
		}
		if sleepErr := r.sleep(ctx, attempt); sleepErr != nil {
			return nil, sleepErr
		}
	}
	return nil, lastErr
}

// sleep implements min(base*2^attempt + jitter, max), where jitter is
// deterministic from wall-clock nanoseconds modulo base.
func (r *retryingProvider) sleep(ctx context.Context, attempt int) error {
	delay := backoffDelay(r.cfg.Base, r.cfg.Max, attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = DefaultRetryConfig().Base
	}
	exp := float64(base) * math.Pow(2, float64(attempt))
	jitter := time.Duration(time.Now().UnixNano()) % base
	delay := time.Duration(exp) + jitter
	if max > 0 && delay > max {
		delay = max
	}
	return delay
}

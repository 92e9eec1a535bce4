// Package ratelimit implements a per-provider cooldown tracker: a
// reason-keyed escalating cooldown schedule that backs off harder on
// repeated consecutive failures of the same kind.
package ratelimit

import (
	"sync"
	"time"

	"github.com/relaycore/agentrt/internal/agentrt/provider/classify"
)

// resetWindow is how long since the last failure before the
// consecutive-failure counter resets.
const resetWindow = 24 * time.Hour

type providerState struct {
	consecutive          map[classify.Reason]int
	cooldownUntil         time.Time
	billingDisabledUntil time.Time
	lastFailure           time.Time
}

// Tracker holds per-provider cooldown state.
type Tracker struct {
	mu    sync.Mutex
	state map[string]*providerState
}

// New creates an empty cooldown Tracker.
func New() *Tracker {
	return &Tracker{state: make(map[string]*providerState)}
}

func (t *Tracker) stateFor(provider string) *providerState {
	s, ok := t.state[provider]
	if !ok {
		s = &providerState{consecutive: make(map[classify.Reason]int)}
		t.state[provider] = s
	}
	return s
}

// RecordFailure classifies err's reason (via the caller) and advances
// the cooldown schedule for provider. Callers pass the already
// classified reason so this package stays decoupled from error types.
func (t *Tracker) RecordFailure(provider string, reason classify.Reason, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stateFor(provider)

	if !s.lastFailure.IsZero() && now.Sub(s.lastFailure) > resetWindow {
		s.consecutive = make(map[classify.Reason]int)
	}
	s.lastFailure = now
	s.consecutive[reason]++
	n := s.consecutive[reason]

	cooldown := schedule(reason, n)
	until := now.Add(cooldown)
	if reason == classify.ReasonBilling {
		s.billingDisabledUntil = until
	} else {
		s.cooldownUntil = until
	}
}

// RecordSuccess clears all cooldown state for provider.
func (t *Tracker) RecordSuccess(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.state, provider)
}

// IsInCooldown reports whether provider is currently in cooldown,
// considering both the general cooldown end and the distinct
// billing_disabled_until field.
func (t *Tracker) IsInCooldown(provider string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.state[provider]
	if !ok {
		return false
	}
	return now.Before(s.cooldownUntil) || now.Before(s.billingDisabledUntil)
}

// schedule computes the cooldown duration for the n-th consecutive
// failure of the given reason.
func schedule(reason classify.Reason, n int) time.Duration {
	// Every escalating schedule is base * 2^(n-1) for its unit, so a
	// single exponent helper covers all four escalating reasons.
	exp := pow2(n - 1)
	switch reason {
	case classify.ReasonBilling:
		return capAt(time.Hour*time.Duration(exp), 24*time.Hour)
	case classify.ReasonRateLimit:
		return capAt(time.Minute*time.Duration(exp), 30*time.Minute)
	case classify.ReasonOverloaded:
		return capAt(30*time.Second*time.Duration(exp), 5*time.Minute)
	case classify.ReasonTimeout:
		return capAt(15*time.Second*time.Duration(exp), 2*time.Minute)
	case classify.ReasonAuth, classify.ReasonFormat:
		return 5 * time.Minute
	default:
		return time.Minute
	}
}

// pow2 returns 2^exp, clamping exp to [0, 40] to guard against
// overflow for pathological consecutive-failure counts.
func pow2(exp int) int64 {
	if exp < 0 {
		exp = 0
	}
	if exp > 40 {
		exp = 40
	}
	return int64(1) << uint(exp)
}

func capAt(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}

package ratelimit

import (
	"testing"
	"time"

	"github.com/relaycore/agentrt/internal/agentrt/provider/classify"
)

func TestCooldownEscalatesAndCaps(t *testing.T) {
	tr := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tr.RecordFailure("openai", classify.ReasonOverloaded, base)
	if !tr.IsInCooldown("openai", base.Add(10*time.Second)) {
		t.Fatal("expected provider to be in cooldown right after first failure")
	}
	if tr.IsInCooldown("openai", base.Add(time.Minute)) {
		t.Fatal("expected first overloaded cooldown (30s) to have expired by 1 minute")
	}

	// Second consecutive failure should escalate to ~60s.
	tr.RecordFailure("openai", classify.ReasonOverloaded, base.Add(time.Minute))
	if !tr.IsInCooldown("openai", base.Add(time.Minute+30*time.Second)) {
		t.Fatal("expected escalated cooldown to still be active at 30s in")
	}
}

func TestCooldownBillingUsesSeparateField(t *testing.T) {
	tr := New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.RecordFailure("anthropic", classify.ReasonBilling, now)
	if !tr.IsInCooldown("anthropic", now.Add(time.Minute)) {
		t.Fatal("expected billing cooldown of at least 1h to be active")
	}
}

func TestRecordSuccessClearsCooldown(t *testing.T) {
	tr := New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.RecordFailure("openai", classify.ReasonRateLimit, now)
	tr.RecordSuccess("openai")
	if tr.IsInCooldown("openai", now.Add(time.Second)) {
		t.Fatal("expected success to clear cooldown state")
	}
}

func TestConsecutiveCounterResetsAfter24Hours(t *testing.T) {
	tr := New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.RecordFailure("openai", classify.ReasonRateLimit, now)
	later := now.Add(25 * time.Hour)
	tr.RecordFailure("openai", classify.ReasonRateLimit, later)
	s := tr.state["openai"]
	if s.consecutive[classify.ReasonRateLimit] != 1 {
		t.Fatalf("expected counter to reset to 1 after 24h gap, got %d", s.consecutive[classify.ReasonRateLimit])
	}
}

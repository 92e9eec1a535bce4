package classify

import (
	"errors"
	"testing"
)

func TestClassifyPriorityBillingOverAuth(t *testing.T) {
	err := errors.New("billing error: invalid api key also present")
	if got := Classify(err); got != ReasonBilling {
		t.Fatalf("expected billing to take priority, got %s", got)
	}
}

func TestClassifyRateLimit(t *testing.T) {
	err := errors.New("429 too many requests")
	if got := Classify(err); got != ReasonRateLimit {
		t.Fatalf("expected rate_limit, got %s", got)
	}
}

func TestClassifyUnknownFallback(t *testing.T) {
	err := errors.New("something completely unrecognized happened")
	if got := Classify(err); got != ReasonUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestClassifyNilError(t *testing.T) {
	if got := Classify(nil); got != ReasonUnknown {
		t.Fatalf("expected unknown for nil error, got %s", got)
	}
}

// Package classify implements fixed-priority substring classification
// of provider error text into a FailoverReason.
package classify

import "strings"

// Reason is the classification bucket an error falls into.
type Reason string

const (
	ReasonBilling     Reason = "billing"
	ReasonAuth        Reason = "auth"
	ReasonRateLimit   Reason = "rate_limit"
	ReasonOverloaded  Reason = "overloaded"
	ReasonTimeout     Reason = "timeout"
	ReasonFormat      Reason = "format"
	ReasonUnknown     Reason = "unknown"
)

// priorityOrder is billing > auth > rate-limit > overloaded > timeout
// > format > unknown.
var priorityOrder = []struct {
	reason   Reason
	patterns []string
}{
	{ReasonBilling, []string{"insufficient_quota", "billing", "payment required", "hard limit", "exceeded your current quota"}},
	{ReasonAuth, []string{"unauthorized", "invalid api key", "invalid_api_key", "authentication", "forbidden", "401", "403"}},
	{ReasonRateLimit, []string{"rate limit", "rate_limit", "too many requests", "429"}},
	{ReasonOverloaded, []string{"overloaded", "capacity", "server is busy", "engine is currently overloaded"}},
	{ReasonTimeout, []string{"timeout", "deadline exceeded", "context deadline", "timed out"}},
	{ReasonFormat, []string{"invalid json", "malformed", "unexpected end of", "schema validation"}},
}

// Classify inspects err's text (case-insensitively) in fixed priority
// order and returns the first matching reason, or ReasonUnknown.
func Classify(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}
	text := strings.ToLower(err.Error())
	for _, bucket := range priorityOrder {
		for _, pattern := range bucket.patterns {
			if strings.Contains(text, pattern) {
				return bucket.reason
			}
		}
	}
	return ReasonUnknown
}

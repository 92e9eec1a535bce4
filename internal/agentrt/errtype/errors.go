// Package errtype defines the closed error taxonomy shared across the
// agent runtime: a small set of error kinds plus a retryability
// predicate used by the provider retry decorator and the cooldown
// tracker.
package errtype

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of error categories the runtime recognizes.
type Kind string

const (
	KindConfig            Kind = "config"
	KindIO                Kind = "io"
	KindProvider          Kind = "provider"
	KindProviderTyped     Kind = "provider_typed"
	KindTool              Kind = "tool"
	KindNotFound          Kind = "not_found"
	KindSecurityViolation Kind = "security_violation"
	KindMCP               Kind = "mcp"
)

// ProviderKind enumerates the typed provider failure reasons.
type ProviderKind string

const (
	ProviderRateLimit      ProviderKind = "rate_limit"
	ProviderOverloaded     ProviderKind = "overloaded"
	ProviderTimeout        ProviderKind = "timeout"
	ProviderAuth           ProviderKind = "auth"
	ProviderBilling        ProviderKind = "billing"
	ProviderFormat         ProviderKind = "format"
	ProviderInvalidRequest ProviderKind = "invalid_request"
	ProviderModelNotFound  ProviderKind = "model_not_found"
	ProviderServerError    ProviderKind = "server_error"
	ProviderUnknown        ProviderKind = "unknown"
)

// retryableProviderKinds is the per-kind retryability table.
var retryableProviderKinds = map[ProviderKind]bool{
	ProviderRateLimit:      true,
	ProviderOverloaded:     true,
	ProviderTimeout:        true,
	ProviderServerError:    true,
	ProviderAuth:           false,
	ProviderBilling:        false,
	ProviderFormat:         false,
	ProviderInvalidRequest: false,
	ProviderModelNotFound:  false,
	ProviderUnknown:        false,
}

// untyped substring patterns considered retryable when no typed kind applies.
var retryablePatterns = []string{
	"timeout", "deadline exceeded", "connection reset", "connection refused",
	"temporarily unavailable", "try again", "rate limit", "overloaded",
	"too many requests", "502", "503", "504",
}

// forcedNonRetryable short-circuits the substring match: these status codes
// always mean "do not retry" regardless of other matched patterns.
var forcedNonRetryable = []string{"400", "401", "403", "404"}

// Error is the runtime's structured error type. It implements error,
// Unwrap, and carries enough context for errors.As-based classification.
type Error struct {
	Kind     Kind
	Provider ProviderKind
	Message  string
	Cause    error
}

// New creates an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind wrapping an existing error.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NewProviderTyped creates a typed provider error.
func NewProviderTyped(pk ProviderKind, message string) *Error {
	return &Error{Kind: KindProviderTyped, Provider: pk, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	prefix := string(e.Kind)
	if e.Kind == KindProviderTyped && e.Provider != "" {
		prefix = fmt.Sprintf("%s:%s", e.Kind, e.Provider)
	}
	if e.Message != "" {
		return fmt.Sprintf("[%s] %s", prefix, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s", prefix, e.Cause.Error())
	}
	return fmt.Sprintf("[%s]", prefix)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Retryable reports whether the error is worth retrying: typed errors consult
// the per-kind table; untyped text falls back to substring matching,
// except that a forced-non-retryable status code always wins.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	text := strings.ToLower(e.Error())
	for _, forced := range forcedNonRetryable {
		if strings.Contains(text, forced) {
			return false
		}
	}
	if e.Kind == KindProviderTyped {
		if retryable, ok := retryableProviderKinds[e.Provider]; ok {
			return retryable
		}
		return false
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}

// Retryable classifies an arbitrary error using the same predicate as
// Error.Retryable, falling back to pure substring matching for errors
// that are not *Error.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Retryable()
	}
	text := strings.ToLower(err.Error())
	for _, forced := range forcedNonRetryable {
		if strings.Contains(text, forced) {
			return false
		}
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind == kind
	}
	return false
}

// Common sentinel errors used across the runtime.
var (
	ErrMaxIterations    = errors.New("max tool iterations exceeded")
	ErrNoProvider       = New(KindProvider, "no provider configured")
	ErrToolNotFound     = New(KindNotFound, "tool not found")
	ErrAlreadyRunning   = New(KindConfig, "agent loop already running")
	ErrWorkspaceMissing = New(KindSecurityViolation, "workspace is required for this tool")
)

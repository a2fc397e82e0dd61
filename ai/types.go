package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Role tags a turn sent to the language model
type Role string

// Turn roles understood by every provider
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged unit of model input
type Turn struct {
	Role    Role
	Content string
}

// Request is a single completion request
type Request struct {
	Turns       []Turn
	MaxTokens   int
	Temperature float64
}

// Provider generates a reply for an ordered sequence of turns.
// Implementations return a *ProviderError for classified upstream failures.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// FailureKind categorizes a failed completion
type FailureKind string

// Failure kinds, each with its own user-facing fallback text
const (
	FailureRateLimited  FailureKind = "rate_limited"
	FailureUnauthorized FailureKind = "unauthorized"
	FailureUnavailable  FailureKind = "unavailable"
	FailureTimeout      FailureKind = "timeout"
	FailureUnknown      FailureKind = "unknown"
)

// ErrNotConfigured is returned by NewProvider when no credential is available
var ErrNotConfigured = errors.New("language model provider is not configured")

// ErrEmptyReply marks a successful call that produced no text
var ErrEmptyReply = errors.New("language model returned an empty reply")

// ErrUnavailable marks calls refused locally, e.g. by an open circuit breaker
var ErrUnavailable = errors.New("language model temporarily unavailable")

// ProviderError is an upstream failure with its HTTP status, if any
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Kind maps the upstream status to a failure kind
func (e *ProviderError) Kind() FailureKind {
	return KindForStatus(e.StatusCode)
}

// KindForStatus maps an HTTP status returned by a model API to a failure kind
func KindForStatus(status int) FailureKind {
	switch status {
	case http.StatusTooManyRequests:
		return FailureRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return FailureUnauthorized
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return FailureUnavailable
	case http.StatusRequestTimeout:
		return FailureTimeout
	default:
		return FailureUnknown
	}
}

// Classify maps any completion error to a failure kind
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	if errors.Is(err, ErrUnavailable) {
		return FailureUnavailable
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind()
	}

	return FailureUnknown
}

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-support/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(cfg, logger.Discard())
	cb.now = c.now
	return cb, c
}

func fail(context.Context) error    { return errUpstream }
func succeed(context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{Name: "llm", FailureThreshold: 3, SuccessThreshold: 1, RetryTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb, c := newTestBreaker(CircuitBreakerConfig{Name: "llm", FailureThreshold: 1, SuccessThreshold: 2, RetryTimeout: time.Minute})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	require.Equal(t, StateOpen, cb.GetState())

	c.t = c.t.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateHalfOpen, cb.GetState())

	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb, c := newTestBreaker(CircuitBreakerConfig{Name: "llm", FailureThreshold: 1, SuccessThreshold: 2, RetryTimeout: time.Minute})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	c.t = c.t.Add(2 * time.Minute)

	require.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)
}

func TestBreakerIgnoresNonCountingErrors(t *testing.T) {
	errThrottled := errors.New("throttled")
	cb, _ := newTestBreaker(CircuitBreakerConfig{
		Name:             "llm",
		FailureThreshold: 1,
		RetryTimeout:     time.Minute,
		IsFailure:        func(err error) bool { return !errors.Is(err, errThrottled) },
	})

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), func(context.Context) error { return errThrottled }), errThrottled)
	}
	assert.Equal(t, StateClosed, cb.GetState())

	m := cb.GetMetrics()
	assert.Equal(t, uint64(5), m["total_requests"])
	assert.Equal(t, uint64(0), m["total_failures"])
}

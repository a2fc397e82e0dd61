package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"storefront-support/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriticalComponentDrivesHealth(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Minute)

	var failing atomic.Bool
	failing.Store(true)
	c.RegisterDatabaseCheck(func(context.Context) error {
		if failing.Load() {
			return errors.New("connection refused")
		}
		return nil
	})
	c.RegisterCheck("llm", false, func(context.Context) (Status, string, error) {
		return StatusDown, "not configured", nil
	})

	assert.True(t, c.IsSystemHealthy(), "unchecked components do not count as down")
	assert.Equal(t, StatusUnknown, c.GetStatus()["database"].Status)

	c.RunChecks(context.Background())
	assert.False(t, c.IsSystemHealthy())
	status := c.GetStatus()
	assert.Equal(t, StatusDown, status["database"].Status)
	assert.Equal(t, "connection refused", status["database"].Error)

	failing.Store(false)
	c.RunChecks(context.Background())
	assert.True(t, c.IsSystemHealthy(), "non-critical llm down does not fail the system")
	assert.Equal(t, StatusUp, c.GetStatus()["database"].Status)
}

func TestOnUpdateAndStart(t *testing.T) {
	c := NewChecker(logger.Discard(), 10*time.Millisecond)
	c.RegisterCheck("database", true, func(context.Context) (Status, string, error) {
		return StatusUp, "ok", nil
	})

	updates := make(chan bool, 16)
	c.OnUpdate(func(healthy bool) {
		select {
		case updates <- healthy:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	select {
	case healthy := <-updates:
		assert.True(t, healthy)
	case <-time.After(time.Second):
		t.Fatal("no health update")
	}
}

func TestChecksReceiveDeadline(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Minute)
	c.RegisterCheck("slow", false, func(ctx context.Context) (Status, string, error) {
		_, ok := ctx.Deadline()
		require.True(t, ok)
		return StatusUp, "", nil
	})
	c.RunChecks(context.Background())
	assert.Equal(t, StatusUp, c.GetStatus()["slow"].Status)
}

func TestStartChecksBeforeReturning(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Hour)
	c.RegisterDatabaseCheck(func(context.Context) error { return nil })
	c.RegisterCheck("redis", true, func(context.Context) (Status, string, error) {
		return StatusDown, "Redis is unreachable", errors.New("dial tcp: refused")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	status := c.GetStatus()
	assert.Equal(t, StatusUp, status["database"].Status)
	assert.Equal(t, StatusDown, status["redis"].Status)
	assert.False(t, c.IsSystemHealthy())
}

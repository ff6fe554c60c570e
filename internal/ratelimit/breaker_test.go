package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

var errDownstream = errors.New("downstream unavailable")

func failing(context.Context) error { return errDownstream }
func succeeding(context.Context) error { return nil }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3, 1, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(ctx, failing), errDownstream)
	}
	assert.Equal(t, BreakerOpen, b.State())

	// Open circuit rejects without calling through.
	called := false
	err := b.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, 1, time.Minute)
	ctx := context.Background()

	require.Error(t, b.Do(ctx, failing))
	require.Error(t, b.Do(ctx, failing))
	require.NoError(t, b.Do(ctx, succeeding))
	require.Error(t, b.Do(ctx, failing))
	require.Error(t, b.Do(ctx, failing))

	// Never saw three consecutive failures.
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewBreaker(2, 2, time.Minute)
	ctx := context.Background()

	require.Error(t, b.Do(ctx, failing))
	require.Error(t, b.Do(ctx, failing))
	require.Equal(t, BreakerOpen, b.State())

	// Simulate the open timeout elapsing.
	b.mu.Lock()
	b.lastFailure = time.Now().Add(-2 * time.Minute)
	b.mu.Unlock()

	// First probe succeeds: half-open, not yet closed.
	require.NoError(t, b.Do(ctx, succeeding))
	assert.Equal(t, BreakerHalfOpen, b.State())

	// Second success closes the circuit.
	require.NoError(t, b.Do(ctx, succeeding))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b := NewBreaker(1, 2, time.Minute)
	ctx := context.Background()

	require.Error(t, b.Do(ctx, failing))
	require.Equal(t, BreakerOpen, b.State())

	b.mu.Lock()
	b.lastFailure = time.Now().Add(-2 * time.Minute)
	b.mu.Unlock()

	require.Error(t, b.Do(ctx, failing))
	assert.Equal(t, BreakerOpen, b.State())
}

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsUpToCapacity(t *testing.T) {
	l := NewLimiter(3, time.Second)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 3, l.InFlight())
}

func TestLimiterBlocksBeyondCapacity(t *testing.T) {
	window := 200 * time.Millisecond
	l := NewLimiter(2, window)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx))
	}

	// The third acquisition had to wait for the window to slide.
	assert.GreaterOrEqual(t, time.Since(start), window)
}

func TestLimiterConcurrentCallers(t *testing.T) {
	window := 150 * time.Millisecond
	l := NewLimiter(5, window)
	ctx := context.Background()

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Acquire(ctx))
		}()
	}
	wg.Wait()

	// 10 acquisitions at 5 per window need at least one extra window.
	assert.GreaterOrEqual(t, time.Since(start), window)
}

func TestLimiterHonorsCancellation(t *testing.T) {
	l := NewLimiter(1, time.Hour)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGateBoundsConcurrency(t *testing.T) {
	g := NewGate(2)
	ctx := context.Background()

	require.NoError(t, g.Enter(ctx))
	require.NoError(t, g.Enter(ctx))
	assert.False(t, g.TryEnter())

	g.Leave()
	assert.True(t, g.TryEnter())
}

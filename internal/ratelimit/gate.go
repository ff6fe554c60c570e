package ratelimit

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of simultaneous operations against one
// downstream resource.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate creates a gate admitting at most limit concurrent holders.
func NewGate(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(limit))}
}

// Enter blocks until a slot is free or ctx is done.
func (g *Gate) Enter(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Leave releases a slot acquired with Enter.
func (g *Gate) Leave() {
	g.sem.Release(1)
}

// TryEnter acquires a slot without blocking.
func (g *Gate) TryEnter() bool {
	return g.sem.TryAcquire(1)
}

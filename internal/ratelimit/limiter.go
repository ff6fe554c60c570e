// Package ratelimit bounds outbound calls toward shared vendor
// resources: a sliding-window call limiter, a concurrency gate, and a
// circuit breaker for flappy downstreams.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/filebridge/internal/logger"
)

// Limiter enforces at most maxCalls acquisitions per sliding window.
// It keeps a timestamped log of recent acquisitions; when at capacity it
// sleeps exactly until the oldest entry exits the window and retries.
// Safe for concurrent use. Fairness is FIFO-ish via retry-after-sleep.
type Limiter struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time

	// now is stubbed in tests.
	now func() time.Time
}

// NewLimiter creates a limiter allowing maxCalls per window.
func NewLimiter(maxCalls int, window time.Duration) *Limiter {
	if maxCalls < 1 {
		maxCalls = 1
	}
	return &Limiter{
		maxCalls: maxCalls,
		window:   window,
		now:      time.Now,
	}
}

// Acquire blocks until a call slot is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait := l.tryAcquire()
		if wait <= 0 {
			return nil
		}

		logger.Debug("rate limit reached, waiting %s", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire records an acquisition if a slot is free, otherwise returns
// how long to wait before the oldest recorded call leaves the window.
func (l *Limiter) tryAcquire() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Prune entries that have left the window.
	kept := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.calls = kept

	if len(l.calls) >= l.maxCalls {
		oldest := l.calls[0]
		return l.window - now.Sub(oldest)
	}

	l.calls = append(l.calls, now)
	return 0
}

// InFlight returns the number of acquisitions currently inside the window.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	n := 0
	for _, t := range l.calls {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

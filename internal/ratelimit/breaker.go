package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/logger"
)

// BreakerState is the circuit breaker's current position.
type BreakerState int

const (
	// BreakerClosed admits all calls.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the open timeout elapses.
	BreakerOpen
	// BreakerHalfOpen admits probe calls while recovering.
	BreakerHalfOpen
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker is a circuit breaker for one downstream resource.
// CLOSED opens after failureThreshold consecutive failures; OPEN moves
// to HALF_OPEN after openTimeout; HALF_OPEN closes after
// successThreshold consecutive successes and reopens on any failure.
type Breaker struct {
	mu               sync.Mutex
	state            BreakerState
	failureCount     int
	successCount     int
	lastFailure      time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration

	now func() time.Time
}

// NewBreaker creates a breaker that opens after failureThreshold
// consecutive failures, probes again after openTimeout, and closes
// after successThreshold consecutive successes.
func NewBreaker(failureThreshold, successThreshold int, openTimeout time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
		now:              time.Now,
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs fn through the breaker. When the circuit is open it returns
// domain.ErrCircuitOpen without calling fn.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err == nil)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if b.now().Sub(b.lastFailure) < b.openTimeout {
			return domain.ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.successCount = 0
		logger.Info("circuit breaker probing downstream (half-open)")
	}
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		switch b.state {
		case BreakerHalfOpen:
			b.successCount++
			if b.successCount >= b.successThreshold {
				b.state = BreakerClosed
				b.failureCount = 0
				logger.Info("circuit breaker closed after recovery")
			}
		case BreakerClosed:
			b.failureCount = 0
		}
		return
	}

	b.failureCount++
	b.lastFailure = b.now()

	switch b.state {
	case BreakerClosed:
		if b.failureCount >= b.failureThreshold {
			b.state = BreakerOpen
			logger.Warn("circuit breaker opened after %d consecutive failures", b.failureCount)
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		logger.Warn("circuit breaker reopened during recovery")
	}
}

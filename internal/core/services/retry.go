package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/logger"
)

// Retryer wraps operations with bounded retry and kind-based backoff.
// Rate-limit failures wait for the server-declared Retry-After when
// present, otherwise RateLimitBackoff; auth and connection transients
// wait RetryDelay. Permanent failures are never retried.
type Retryer struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryDelay is the wait before retrying transient auth and
	// connection failures.
	RetryDelay time.Duration

	// RateLimitBackoff is the wait for rate-limit failures that carry
	// no server-declared Retry-After.
	RateLimitBackoff time.Duration
}

// DefaultRetryer mirrors the engine defaults: three retries, 30s
// transient delay, 60s rate-limit backoff.
func DefaultRetryer() Retryer {
	return Retryer{
		MaxRetries:       3,
		RetryDelay:       30 * time.Second,
		RateLimitBackoff: 60 * time.Second,
	}
}

// Do runs op until it succeeds, fails permanently, or retries are
// exhausted. The total number of attempts is MaxRetries+1. Backoff
// sleeps honor ctx cancellation.
func (r Retryer) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		kind := domain.KindOf(lastErr)
		if !kind.Retryable() {
			return lastErr
		}
		if attempt == r.MaxRetries {
			break
		}

		backoff := r.backoffFor(kind, lastErr)
		logger.Warn("attempt %d/%d failed (%s), retrying in %s: %v",
			attempt+1, r.MaxRetries+1, kind, backoff, lastErr)

		if err := sleepCtx(ctx, backoff); err != nil {
			return err
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", r.MaxRetries+1, lastErr)
}

// backoffFor selects the wait for a retryable failure.
func (r Retryer) backoffFor(kind domain.ErrorKind, err error) time.Duration {
	if kind == domain.KindRateLimited {
		if after := domain.RetryAfterOf(err); after > 0 {
			return after
		}
		return r.RateLimitBackoff
	}
	return r.RetryDelay
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

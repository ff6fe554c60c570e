package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"plain error is permanent", errors.New("boom"), KindPermanent},
		{"rate limit", NewRateLimitError(errors.New("429"), 2*time.Second), KindRateLimited},
		{"auth transient", NewVendorError(KindAuthTransient, errors.New("401")), KindAuthTransient},
		{"conn transient", NewVendorError(KindConnTransient, errors.New("reset")), KindConnTransient},
		{"wrapped vendor error", fmt.Errorf("sync: %w", NewVendorError(KindConnTransient, errors.New("eof"))), KindConnTransient},
		{"nil-ish permanent", NewVendorError(KindPermanent, errors.New("400")), KindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestRetryAfterOf(t *testing.T) {
	err := NewRateLimitError(errors.New("quota"), 3*time.Second)
	assert.Equal(t, 3*time.Second, RetryAfterOf(err))
	assert.Equal(t, time.Duration(0), RetryAfterOf(errors.New("plain")))
}

func TestErrorKindRetryable(t *testing.T) {
	assert.False(t, KindPermanent.Retryable())
	assert.True(t, KindRateLimited.Retryable())
	assert.True(t, KindAuthTransient.Retryable())
	assert.True(t, KindConnTransient.Retryable())
}

func TestVendorErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewVendorError(KindConnTransient, cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection_transient")
}

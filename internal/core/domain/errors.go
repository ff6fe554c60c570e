package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown vendor type.
	ErrUnsupportedType = errors.New("unsupported vendor type")

	// ErrEndpointInactive indicates the endpoint exists but is deactivated.
	ErrEndpointInactive = errors.New("endpoint is not active")

	// ErrSchedulerNotRunning indicates a management operation requires a
	// running scheduler.
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSchedulerRunning indicates the scheduler is already started.
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrInvalidSchedule indicates a malformed schedule specification.
	// This is a permanent configuration error and is never retried.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrCircuitOpen indicates the circuit breaker is rejecting calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// ErrorKind classifies a vendor failure for retry purposes.
type ErrorKind int

const (
	// KindPermanent failures are never retried: bad requests, missing
	// resources, malformed data, structural credential problems.
	KindPermanent ErrorKind = iota

	// KindRateLimited indicates the vendor quota was exceeded. Retried
	// after the server-declared Retry-After when present.
	KindRateLimited

	// KindAuthTransient indicates an expired or momentarily invalid
	// token. Retried after re-authentication.
	KindAuthTransient

	// KindConnTransient indicates a network or IO failure. Retried
	// after a fixed delay.
	KindConnTransient
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuthTransient:
		return "auth_transient"
	case KindConnTransient:
		return "connection_transient"
	default:
		return "permanent"
	}
}

// Retryable reports whether failures of this kind may be retried.
func (k ErrorKind) Retryable() bool {
	return k != KindPermanent
}

// VendorError carries a classified vendor failure. The kind drives retry
// behaviour; RetryAfter is only meaningful for KindRateLimited and is zero
// when the vendor did not declare a backoff.
type VendorError struct {
	Kind       ErrorKind
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *VendorError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("vendor error (%s)", e.Kind)
	}
	return fmt.Sprintf("vendor error (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *VendorError) Unwrap() error {
	return e.Err
}

// NewVendorError wraps err with a retry classification.
func NewVendorError(kind ErrorKind, err error) *VendorError {
	return &VendorError{Kind: kind, Err: err}
}

// NewRateLimitError wraps err as rate-limited with a server-declared backoff.
func NewRateLimitError(err error, retryAfter time.Duration) *VendorError {
	return &VendorError{Kind: KindRateLimited, RetryAfter: retryAfter, Err: err}
}

// KindOf classifies err. Errors that are not a VendorError are treated as
// permanent: unknown failures must not be retried blindly.
func KindOf(err error) ErrorKind {
	var ve *VendorError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindPermanent
}

// RetryAfterOf returns the server-declared backoff for a rate-limit error,
// or zero when none was declared.
func RetryAfterOf(err error) time.Duration {
	var ve *VendorError
	if errors.As(err, &ve) {
		return ve.RetryAfter
	}
	return 0
}

package driving

import (
	"context"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

// Scheduler manages recurring sync jobs for scheduled endpoints.
type Scheduler interface {
	// Start begins the scheduling clock and registers a job for every
	// endpoint with a recurring schedule. Idempotent.
	Start(ctx context.Context) error

	// Stop halts the clock. When wait is true it blocks until in-flight
	// firings finish; otherwise they complete in the background.
	Stop(wait bool) error

	// Running reports whether the clock is started.
	Running() bool

	// ReloadJobs atomically replaces the job set from the given
	// endpoints. On partial failure the scheduler prefers no jobs over
	// duplicated jobs.
	ReloadJobs(ctx context.Context, endpoints []domain.Endpoint) error

	// AddJob registers (or replaces) the job for one endpoint.
	AddJob(ctx context.Context, endpoint domain.Endpoint) (string, error)

	// RemoveJob unregisters an endpoint's job. Returns false without
	// error when no such job exists.
	RemoveJob(ctx context.Context, endpoint domain.Endpoint) (bool, error)

	// TriggerNow runs the endpoint's sync immediately, outside its
	// normal trigger, without touching the recurring registration.
	TriggerNow(ctx context.Context, endpoint domain.Endpoint) (*domain.SyncResult, error)

	// JobStatus returns the record for one job, or nil if unknown.
	JobStatus(jobID string) *domain.JobRecord

	// JobStatuses returns records for all known jobs.
	JobStatuses() []domain.JobRecord

	// Stats aggregates counters across all jobs.
	Stats() domain.SchedulerStats
}

package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

// EndpointStore persists endpoint configuration and sync watermarks.
type EndpointStore interface {
	// Save stores or updates an endpoint.
	Save(ctx context.Context, endpoint domain.Endpoint) error

	// Get retrieves an endpoint by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Endpoint, error)

	// List returns all endpoints matching the filter.
	List(ctx context.Context, filter domain.EndpointFilter) ([]domain.Endpoint, error)

	// ListActive returns active endpoints matching the filter.
	ListActive(ctx context.Context, filter domain.EndpointFilter) ([]domain.Endpoint, error)

	// SetActive flips an endpoint's active flag.
	SetActive(ctx context.Context, id string, active bool) error

	// UpdateWatermark advances an endpoint's last-sync watermark.
	// The watermark never moves backward; implementations ignore
	// timestamps at or before the stored value.
	UpdateWatermark(ctx context.Context, id string, t time.Time) error

	// Delete removes an endpoint.
	Delete(ctx context.Context, id string) error
}

// FileStore persists file records discovered by syncs.
type FileStore interface {
	// Upsert stores the metadata under (endpointID, ExternalID) and
	// returns the resulting record plus whether it was newly created.
	// For existing records the stored vendor timestamps are the values
	// from before this upsert, so callers can classify updates.
	Upsert(ctx context.Context, meta domain.FileMetadata, endpointID string) (*domain.FileRecord, bool, error)

	// Get retrieves a record by endpoint and vendor-native ID.
	Get(ctx context.Context, endpointID, externalID string) (*domain.FileRecord, error)

	// CountByEndpoint returns the number of records for an endpoint.
	CountByEndpoint(ctx context.Context, endpointID string) (int, error)
}

// SyncLogStore persists per-sync history entries.
type SyncLogStore interface {
	// Start creates a running sync-log entry and returns its ID.
	Start(ctx context.Context, endpointID string) (string, error)

	// Complete finalises a sync-log entry with its outcome.
	Complete(ctx context.Context, logID string, log domain.SyncLog) error

	// Recent returns the most recent entries for an endpoint, newest
	// first.
	Recent(ctx context.Context, endpointID string, limit int) ([]domain.SyncLog, error)
}

// SchedulerStore persists job records for crash visibility. The
// scheduler's in-memory state is authoritative; persistence is
// best-effort and read back only for status reporting.
type SchedulerStore interface {
	// SaveJob creates or updates a job record by ID.
	SaveJob(ctx context.Context, job *domain.JobRecord) error

	// GetJob retrieves a job record.
	// Returns nil and no error if the job does not exist.
	GetJob(ctx context.Context, jobID string) (*domain.JobRecord, error)

	// ListJobs returns all persisted job records.
	ListJobs(ctx context.Context) ([]domain.JobRecord, error)

	// DeleteJob removes a job record.
	DeleteJob(ctx context.Context, jobID string) error
}

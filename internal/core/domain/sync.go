package domain

import "time"

// SyncStatus is the recorded outcome of a sync-log entry.
type SyncStatus string

const (
	// SyncStatusRunning marks a sync that has started but not finished.
	SyncStatusRunning SyncStatus = "running"

	// SyncStatusSuccess marks a fully successful sync.
	SyncStatusSuccess SyncStatus = "success"

	// SyncStatusFailed marks a sync that gave up after retries.
	SyncStatusFailed SyncStatus = "failed"
)

// SyncResult is the outcome of one endpoint sync attempt. It is built
// once per attempt and never mutated after being returned.
type SyncResult struct {
	// EndpointID identifies the synced endpoint.
	EndpointID string

	// Success is true only when the full listing completed.
	Success bool

	// FilesProcessed counts every file received from the vendor.
	FilesProcessed int

	// FilesAdded counts files not previously stored.
	FilesAdded int

	// FilesUpdated counts stored files whose vendor modification time
	// was strictly newer than the stored one.
	FilesUpdated int

	// FilesSkipped counts stored files with no newer modification time.
	FilesSkipped int

	// ErrorMessage describes the failure when Success is false.
	ErrorMessage string

	// Duration is the wall-clock time the attempt took.
	Duration time.Duration
}

// FilesChanged returns the number of files added or updated.
func (r *SyncResult) FilesChanged() int {
	return r.FilesAdded + r.FilesUpdated
}

// SyncStats aggregates the results of a batch sync run.
type SyncStats struct {
	// TotalEndpoints is the number of endpoints attempted.
	TotalEndpoints int

	// SuccessfulSyncs counts results with Success true.
	SuccessfulSyncs int

	// FailedSyncs counts unsuccessful results and panicked/errored syncs.
	FailedSyncs int

	// TotalFilesProcessed and TotalFilesChanged sum the per-endpoint
	// counters of successful syncs.
	TotalFilesProcessed int
	TotalFilesChanged   int

	// TotalDuration is the wall-clock time of the whole batch.
	TotalDuration time.Duration
}

// SuccessRate returns the percentage of successful syncs, or zero when
// no endpoints were attempted.
func (s *SyncStats) SuccessRate() float64 {
	if s.TotalEndpoints == 0 {
		return 0
	}
	return float64(s.SuccessfulSyncs) / float64(s.TotalEndpoints) * 100
}

// SyncLog is one persisted sync-log entry for an endpoint.
type SyncLog struct {
	// ID identifies the log entry.
	ID string

	// EndpointID links the entry to its endpoint.
	EndpointID string

	// StartedAt and CompletedAt bracket the sync attempt.
	StartedAt   time.Time
	CompletedAt time.Time

	// Status is the recorded outcome.
	Status SyncStatus

	// Per-category counters for the attempt.
	FilesProcessed int
	FilesAdded     int
	FilesUpdated   int
	FilesSkipped   int

	// ErrorMessage holds the failure detail, if any.
	ErrorMessage string

	// Duration is the attempt's wall-clock time.
	Duration time.Duration
}

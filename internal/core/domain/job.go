package domain

import "time"

// JobRecord is the scheduler-side state for one scheduled endpoint.
// It is created when the job is registered, mutated on every firing,
// and removed when the endpoint is deactivated or dropped on reload.
type JobRecord struct {
	// ID is the deterministic job identity (see Endpoint.JobID).
	ID string

	// EndpointID and EndpointName identify the underlying endpoint.
	EndpointID   string
	EndpointName string

	// Vendor and ProjectID are carried for status reporting.
	Vendor    VendorType
	ProjectID string

	// Schedule is the trigger specification the job was registered with.
	Schedule Schedule

	// RunCount counts every firing, including failures and firings
	// skipped because the previous one was still running.
	RunCount int

	// SuccessCount and ErrorCount split completed firings by outcome.
	SuccessCount int
	ErrorCount   int

	// MissedCount counts firings dropped because they fell outside the
	// misfire grace window.
	MissedCount int

	// LastRun is when the job last fired; NextRun is the next planned
	// firing.
	LastRun time.Time
	NextRun time.Time

	// LastResult summarises the most recent completed firing.
	LastResult *JobResult

	// Registered reports whether the job currently has a trigger.
	Registered bool

	// CreatedAt is when the job was registered.
	CreatedAt time.Time
}

// JobResult is the condensed outcome of one job firing.
type JobResult struct {
	Success        bool
	FilesProcessed int
	FilesChanged   int
	Duration       time.Duration
	ErrorMessage   string
}

// SchedulerStats aggregates counters across all registered jobs.
type SchedulerStats struct {
	Running        bool
	TotalJobs      int
	TotalRuns      int
	TotalSuccesses int
	TotalErrors    int
	TotalMissed    int
}

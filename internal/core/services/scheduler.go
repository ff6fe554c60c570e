package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
	"github.com/custodia-labs/filebridge/internal/core/ports/driving"
	"github.com/custodia-labs/filebridge/internal/cron"
	"github.com/custodia-labs/filebridge/internal/logger"
)

// SchedulerConfig tunes the job scheduler clock.
type SchedulerConfig struct {
	// TickInterval is how often due jobs are checked.
	TickInterval time.Duration

	// MisfireGrace is how late a firing may be and still run. Later
	// firings are dropped and counted as missed.
	MisfireGrace time.Duration
}

// DefaultSchedulerConfig returns the scheduler defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TickInterval: time.Second,
		MisfireGrace: 5 * time.Minute,
	}
}

// job is the scheduler's internal state for one registered endpoint.
type job struct {
	record   domain.JobRecord
	endpoint domain.Endpoint
	cronSpec *cron.Schedule // non-nil for cron schedules
	running  bool
}

// JobScheduler implements driving.Scheduler with its own tick loop.
// Firings overlap-coalesce: while an endpoint's sync is still running,
// due firings are counted but no second sync starts. The in-memory job
// table is authoritative; the scheduler store only mirrors it for
// status visibility across restarts.
type JobScheduler struct {
	syncer    driving.Syncer
	endpoints driven.EndpointStore
	store     driven.SchedulerStore
	cfg       SchedulerConfig

	mu      sync.Mutex
	jobs    map[string]*job
	started bool
	cancel  context.CancelFunc

	loopDone chan struct{}
	runs     sync.WaitGroup

	now func() time.Time
}

// NewJobScheduler creates a stopped scheduler. store may be nil, which
// disables persistence.
func NewJobScheduler(syncer driving.Syncer, endpoints driven.EndpointStore, store driven.SchedulerStore, cfg SchedulerConfig) *JobScheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultSchedulerConfig().TickInterval
	}
	if cfg.MisfireGrace <= 0 {
		cfg.MisfireGrace = DefaultSchedulerConfig().MisfireGrace
	}
	return &JobScheduler{
		syncer:    syncer,
		endpoints: endpoints,
		store:     store,
		cfg:       cfg,
		jobs:      make(map[string]*job),
		now:       time.Now,
	}
}

// Start registers jobs for all active recurring endpoints and begins
// the clock. Calling Start on a running scheduler is a no-op.
func (s *JobScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		logger.Warn("scheduler already running")
		return nil
	}
	s.started = true
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	endpoints, err := s.endpoints.ListActive(ctx, domain.EndpointFilter{})
	if err != nil {
		s.mu.Lock()
		s.started = false
		s.cancel = nil
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("loading endpoints for scheduling: %w", err)
	}
	if err := s.ReloadJobs(ctx, endpoints); err != nil {
		s.mu.Lock()
		s.started = false
		s.cancel = nil
		s.mu.Unlock()
		cancel()
		return err
	}

	go s.loop(loopCtx)

	s.mu.Lock()
	n := len(s.jobs)
	s.mu.Unlock()
	logger.Info("scheduler started with %d jobs (tick %s)", n, s.cfg.TickInterval)
	return nil
}

// Stop halts the clock. With wait true it blocks until in-flight
// firings finish; otherwise they complete in the background.
func (s *JobScheduler) Stop(wait bool) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return domain.ErrSchedulerNotRunning
	}
	s.started = false
	cancel := s.cancel
	s.cancel = nil
	done := s.loopDone
	s.mu.Unlock()

	cancel()
	<-done

	if wait {
		s.runs.Wait()
	}
	logger.Info("scheduler stopped (wait=%t)", wait)
	return nil
}

// Running reports whether the clock is started.
func (s *JobScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// loop checks for due jobs every tick until cancelled.
func (s *JobScheduler) loop(ctx context.Context) {
	defer close(s.loopDone)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireDue()
		}
	}
}

// fireDue fires every job whose next run is due, applying coalescing
// and the misfire grace window.
func (s *JobScheduler) fireDue() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if !j.record.Registered || j.record.NextRun.IsZero() || j.record.NextRun.After(now) {
			continue
		}

		lateness := now.Sub(j.record.NextRun)
		next := s.nextRun(j, now)

		switch {
		case lateness > s.cfg.MisfireGrace:
			j.record.MissedCount++
			j.record.NextRun = next
			logger.Warn("job %s missed its window by %s, skipping to %s",
				j.record.ID, lateness, next.Format(time.RFC3339))

		case j.running:
			// Previous firing still in flight; count and move on.
			j.record.RunCount++
			j.record.NextRun = next
			logger.Warn("job %s still running, coalescing overlapping firing", j.record.ID)

		default:
			j.record.RunCount++
			j.record.LastRun = now
			j.record.NextRun = next
			j.running = true
			s.launch(j)
		}
		s.persist(&j.record)
	}
}

// launch starts one firing in the background. Caller holds s.mu.
func (s *JobScheduler) launch(j *job) {
	endpointID := j.endpoint.ID
	jobID := j.record.ID

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()

		logger.Debug("job %s firing for endpoint %s", jobID, endpointID)
		result, err := s.syncer.SyncEndpointByID(context.Background(), endpointID, driving.SyncRequest{})
		s.recordOutcome(jobID, result, err)
	}()
}

// recordOutcome folds a completed firing back into the job record.
func (s *JobScheduler) recordOutcome(jobID string, result *domain.SyncResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return
	}
	j.running = false

	outcome := &domain.JobResult{}
	switch {
	case err != nil:
		outcome.Success = false
		outcome.ErrorMessage = err.Error()
	default:
		outcome.Success = result.Success
		outcome.FilesProcessed = result.FilesProcessed
		outcome.FilesChanged = result.FilesChanged()
		outcome.Duration = result.Duration
		outcome.ErrorMessage = result.ErrorMessage
	}

	if outcome.Success {
		j.record.SuccessCount++
	} else {
		j.record.ErrorCount++
	}
	j.record.LastResult = outcome
	s.persist(&j.record)
}

// ReloadJobs replaces the job set from the given endpoints. Counters of
// jobs that survive the reload (same job ID) are carried over. Every
// valid endpoint is registered; registration failures are collected and
// returned together so a bad endpoint cannot go silently unscheduled.
func (s *JobScheduler) ReloadJobs(ctx context.Context, endpoints []domain.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.jobs
	s.jobs = make(map[string]*job)

	var errs []error
	for _, endpoint := range endpoints {
		if !endpoint.Active || !endpoint.Schedule.Recurring() {
			continue
		}
		j, err := s.buildJob(endpoint)
		if err != nil {
			logger.Warn("cannot register endpoint %s: %v", endpoint.ID, err)
			errs = append(errs, fmt.Errorf("endpoint %s: %w", endpoint.ID, err))
			continue
		}
		if prev, ok := old[j.record.ID]; ok {
			s.carryOver(j, prev)
		}
		s.jobs[j.record.ID] = j
		s.persist(&j.record)
	}

	for id := range old {
		if _, kept := s.jobs[id]; !kept {
			s.dropPersisted(id)
		}
	}

	logger.Info("job set reloaded: %d jobs registered", len(s.jobs))
	return errors.Join(errs...)
}

// AddJob registers (or replaces) the job for one endpoint.
func (s *JobScheduler) AddJob(ctx context.Context, endpoint domain.Endpoint) (string, error) {
	if err := endpoint.Validate(); err != nil {
		return "", err
	}
	if !endpoint.Schedule.Recurring() {
		return "", fmt.Errorf("%w: schedule type %q registers no job", domain.ErrInvalidSchedule, endpoint.Schedule.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.buildJob(endpoint)
	if err != nil {
		return "", err
	}
	if prev, ok := s.jobs[j.record.ID]; ok {
		s.carryOver(j, prev)
	}
	s.jobs[j.record.ID] = j
	s.persist(&j.record)

	logger.Info("registered job %s for endpoint %s, next run %s",
		j.record.ID, endpoint.ID, j.record.NextRun.Format(time.RFC3339))
	return j.record.ID, nil
}

// RemoveJob unregisters an endpoint's job. Returns false without error
// when no such job exists.
func (s *JobScheduler) RemoveJob(ctx context.Context, endpoint domain.Endpoint) (bool, error) {
	jobID := endpoint.JobID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return false, nil
	}
	delete(s.jobs, jobID)
	s.dropPersisted(jobID)

	logger.Info("removed job %s", jobID)
	return true, nil
}

// TriggerNow runs the endpoint's sync immediately, outside its normal
// trigger. The recurring registration is untouched; when a job exists
// its counters still record the firing.
func (s *JobScheduler) TriggerNow(ctx context.Context, endpoint domain.Endpoint) (*domain.SyncResult, error) {
	jobID := endpoint.JobID()

	s.mu.Lock()
	if j, ok := s.jobs[jobID]; ok {
		j.record.RunCount++
		j.record.LastRun = s.now()
	}
	s.mu.Unlock()

	result, err := s.syncer.SyncEndpointByID(ctx, endpoint.ID, driving.SyncRequest{})

	s.mu.Lock()
	if j, ok := s.jobs[jobID]; ok {
		outcome := &domain.JobResult{}
		if err != nil {
			outcome.ErrorMessage = err.Error()
		} else {
			outcome.Success = result.Success
			outcome.FilesProcessed = result.FilesProcessed
			outcome.FilesChanged = result.FilesChanged()
			outcome.Duration = result.Duration
			outcome.ErrorMessage = result.ErrorMessage
		}
		if outcome.Success {
			j.record.SuccessCount++
		} else {
			j.record.ErrorCount++
		}
		j.record.LastResult = outcome
		s.persist(&j.record)
	}
	s.mu.Unlock()

	return result, err
}

// JobStatus returns a copy of one job's record, or nil if unknown.
func (s *JobScheduler) JobStatus(jobID string) *domain.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	record := j.record
	return &record
}

// JobStatuses returns copies of all job records, ordered by job ID.
func (s *JobScheduler) JobStatuses() []domain.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.JobRecord, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats aggregates counters across all jobs.
func (s *JobScheduler) Stats() domain.SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := domain.SchedulerStats{
		Running:   s.started,
		TotalJobs: len(s.jobs),
	}
	for _, j := range s.jobs {
		stats.TotalRuns += j.record.RunCount
		stats.TotalSuccesses += j.record.SuccessCount
		stats.TotalErrors += j.record.ErrorCount
		stats.TotalMissed += j.record.MissedCount
	}
	return stats
}

// buildJob creates the internal job state for an endpoint, including
// its first planned firing.
func (s *JobScheduler) buildJob(endpoint domain.Endpoint) (*job, error) {
	j := &job{
		endpoint: endpoint,
		record: domain.JobRecord{
			ID:           endpoint.JobID(),
			EndpointID:   endpoint.ID,
			EndpointName: endpoint.Name,
			Vendor:       endpoint.Vendor,
			ProjectID:    endpoint.ProjectID,
			Schedule:     endpoint.Schedule,
			Registered:   true,
			CreatedAt:    s.now(),
		},
	}

	if endpoint.Schedule.Type == domain.ScheduleCron {
		spec, err := cron.Parse(endpoint.Schedule.CronExpr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSchedule, err)
		}
		j.cronSpec = spec
	}

	j.record.NextRun = s.nextRun(j, s.now())
	if j.record.NextRun.IsZero() {
		return nil, fmt.Errorf("%w: schedule %q never fires", domain.ErrInvalidSchedule, endpoint.Schedule.CronExpr)
	}
	return j, nil
}

// carryOver preserves a surviving job's history across a re-register.
func (s *JobScheduler) carryOver(j, prev *job) {
	j.record.RunCount = prev.record.RunCount
	j.record.SuccessCount = prev.record.SuccessCount
	j.record.ErrorCount = prev.record.ErrorCount
	j.record.MissedCount = prev.record.MissedCount
	j.record.LastRun = prev.record.LastRun
	j.record.LastResult = prev.record.LastResult
	j.record.CreatedAt = prev.record.CreatedAt
	j.running = prev.running
}

// nextRun computes the firing after the given time.
func (s *JobScheduler) nextRun(j *job, after time.Time) time.Time {
	switch j.endpoint.Schedule.Type {
	case domain.ScheduleInterval:
		return after.Add(j.endpoint.Schedule.Interval)
	case domain.ScheduleCron:
		return j.cronSpec.Next(after)
	}
	return time.Time{}
}

// persist mirrors a job record to the scheduler store. Best effort;
// the in-memory table stays authoritative.
func (s *JobScheduler) persist(record *domain.JobRecord) {
	if s.store == nil {
		return
	}
	copied := *record
	if err := s.store.SaveJob(context.Background(), &copied); err != nil {
		logger.Warn("failed to persist job %s: %v", record.ID, err)
	}
}

func (s *JobScheduler) dropPersisted(jobID string) {
	if s.store == nil {
		return
	}
	if err := s.store.DeleteJob(context.Background(), jobID); err != nil {
		logger.Warn("failed to delete persisted job %s: %v", jobID, err)
	}
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
	"github.com/custodia-labs/filebridge/internal/core/ports/driving"
	"github.com/custodia-labs/filebridge/internal/logger"
)

// ManagerConfig tunes the scheduler manager.
type ManagerConfig struct {
	// HealthInterval is how often the background health check runs.
	HealthInterval time.Duration

	// StuckJobThreshold is how long a firing may stay in flight before
	// the job is reported as stuck.
	StuckJobThreshold time.Duration
}

// DefaultManagerConfig returns the manager defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		HealthInterval:    5 * time.Minute,
		StuckJobThreshold: time.Hour,
	}
}

// SchedulerManager is the long-running service facade: it seeds
// endpoints from configuration, runs the scheduler, watches for
// configuration changes and periodically checks system health.
type SchedulerManager struct {
	scheduler driving.Scheduler
	syncer    driving.Syncer
	endpoints driven.EndpointStore

	// source is optional; without it endpoints come from storage alone
	// and no configuration watching happens.
	source driven.ConfigSource

	cfg ManagerConfig

	cancel context.CancelFunc
	done   chan struct{}

	now func() time.Time
}

// NewSchedulerManager creates a stopped manager. source may be nil.
func NewSchedulerManager(
	scheduler driving.Scheduler,
	syncer driving.Syncer,
	endpoints driven.EndpointStore,
	source driven.ConfigSource,
	cfg ManagerConfig,
) *SchedulerManager {
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = DefaultManagerConfig().HealthInterval
	}
	if cfg.StuckJobThreshold <= 0 {
		cfg.StuckJobThreshold = DefaultManagerConfig().StuckJobThreshold
	}
	return &SchedulerManager{
		scheduler: scheduler,
		syncer:    syncer,
		endpoints: endpoints,
		source:    source,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start seeds endpoints from configuration, starts the scheduler and
// launches the background loops. Starting a running manager is a no-op.
func (m *SchedulerManager) Start(ctx context.Context) error {
	if m.scheduler.Running() {
		logger.Warn("scheduler manager already started")
		return nil
	}

	if err := m.seedEndpoints(ctx); err != nil {
		return err
	}
	if err := m.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.background(loopCtx)

	logger.Info("scheduler manager started")
	return nil
}

// Stop halts the background loops and the scheduler.
func (m *SchedulerManager) Stop(wait bool) error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
		m.cancel = nil
	}
	if err := m.scheduler.Stop(wait); err != nil {
		return err
	}
	logger.Info("scheduler manager stopped")
	return nil
}

// TriggerSync runs one endpoint's sync immediately.
func (m *SchedulerManager) TriggerSync(ctx context.Context, endpointID string) (*domain.SyncResult, error) {
	return m.syncer.SyncEndpointByID(ctx, endpointID, driving.SyncRequest{})
}

// TriggerProjectSync syncs all active endpoints of one project.
func (m *SchedulerManager) TriggerProjectSync(ctx context.Context, projectID string) (*domain.SyncStats, error) {
	return m.syncer.SyncProject(ctx, projectID, driving.BatchRequest{})
}

// ReloadConfiguration re-reads the endpoint configuration and replaces
// the scheduler's job set. The scheduler must be running.
func (m *SchedulerManager) ReloadConfiguration(ctx context.Context) error {
	if !m.scheduler.Running() {
		return domain.ErrSchedulerNotRunning
	}

	if err := m.seedEndpoints(ctx); err != nil {
		return err
	}

	active, err := m.endpoints.ListActive(ctx, domain.EndpointFilter{})
	if err != nil {
		return fmt.Errorf("listing endpoints for reload: %w", err)
	}
	if err := m.scheduler.ReloadJobs(ctx, active); err != nil {
		return fmt.Errorf("reloading jobs: %w", err)
	}

	logger.Info("configuration reloaded: %d active endpoints", len(active))
	return nil
}

// Health reports the system condition: storage and vendor probes from
// the orchestrator, scheduler state, stuck jobs and the error balance.
func (m *SchedulerManager) Health(ctx context.Context) *domain.Health {
	health := m.syncer.HealthCheck(ctx)

	stats := m.scheduler.Stats()
	health.SchedulerRunning = stats.Running
	health.Stats = stats

	if !stats.Running {
		health.Fail("scheduler is not running")
	}
	if stats.TotalErrors > stats.TotalSuccesses && stats.TotalErrors > 0 {
		health.Degrade(fmt.Sprintf("sync errors (%d) exceed successes (%d)",
			stats.TotalErrors, stats.TotalSuccesses))
	}

	now := m.now()
	for _, job := range m.scheduler.JobStatuses() {
		// Catches both a firing that never completed and a trigger that
		// silently stopped firing. Never-run jobs are excluded.
		if !job.LastRun.IsZero() && now.Sub(job.LastRun) > m.cfg.StuckJobThreshold {
			health.Degrade(fmt.Sprintf("job %s appears stuck: last run at %s",
				job.ID, job.LastRun.Format(time.RFC3339)))
		}
	}

	return health
}

// seedEndpoints loads endpoints from the configured source into
// storage. Without a source, storage is left as-is.
func (m *SchedulerManager) seedEndpoints(ctx context.Context) error {
	if m.source == nil {
		return nil
	}

	endpoints, err := m.source.LoadEndpoints(ctx)
	if err != nil {
		return fmt.Errorf("loading endpoint configuration: %w", err)
	}
	for _, endpoint := range endpoints {
		if err := m.endpoints.Save(ctx, endpoint); err != nil {
			return fmt.Errorf("saving endpoint %q: %w", endpoint.ID, err)
		}
	}

	logger.Info("loaded %d endpoints from configuration", len(endpoints))
	return nil
}

// background runs the periodic health check and, when a configuration
// source is present, the change watcher.
func (m *SchedulerManager) background(ctx context.Context) {
	defer close(m.done)

	if m.source != nil {
		go func() {
			err := m.source.Watch(ctx, func() {
				if rerr := m.ReloadConfiguration(ctx); rerr != nil {
					logger.Error("configuration reload failed: %v", rerr)
				}
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("configuration watch stopped: %v", err)
			}
		}()
	}

	ticker := time.NewTicker(m.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := m.Health(ctx)
			if health.Status == domain.HealthHealthy {
				logger.Debug("health check passed")
				continue
			}
			for _, issue := range health.Issues {
				logger.Warn("health check: %s", issue)
			}
		}
	}
}

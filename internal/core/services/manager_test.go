package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filebridge/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
)

// fakeSource serves a mutable endpoint list and signals changes through
// a channel.
type fakeSource struct {
	mu        sync.Mutex
	endpoints []domain.Endpoint
	changed   chan struct{}
}

func newFakeSource(endpoints ...domain.Endpoint) *fakeSource {
	return &fakeSource{endpoints: endpoints, changed: make(chan struct{}, 1)}
}

func (s *fakeSource) LoadEndpoints(ctx context.Context) ([]domain.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Endpoint, len(s.endpoints))
	copy(out, s.endpoints)
	return out, nil
}

func (s *fakeSource) Watch(ctx context.Context, onChange func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.changed:
			onChange()
		}
	}
}

func (s *fakeSource) set(endpoints ...domain.Endpoint) {
	s.mu.Lock()
	s.endpoints = endpoints
	s.mu.Unlock()
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

type managerFixture struct {
	endpoints *memory.EndpointStore
	source    *fakeSource
	sched     *JobScheduler
	manager   *SchedulerManager
}

func newManagerFixture(t *testing.T, source *fakeSource) *managerFixture {
	t.Helper()

	f := &managerFixture{
		endpoints: memory.NewEndpointStore(),
		source:    source,
	}

	files := memory.NewFileStore()
	syncLogs := memory.NewSyncLogStore()
	factory := newFakeFactory(&fakeClient{vendor: domain.VendorGoogleDrive})
	engine := NewSyncEngine(f.endpoints, files, syncLogs, factory, nil, SyncConfig{
		MaxRetries:       0,
		RetryDelay:       time.Millisecond,
		RateLimitBackoff: time.Millisecond,
	})
	orch := NewOrchestrator(f.endpoints, files, syncLogs, factory, engine, 2)
	f.sched = NewJobScheduler(orch, f.endpoints, memory.NewSchedulerStore(), SchedulerConfig{
		TickInterval: 10 * time.Millisecond,
		MisfireGrace: 5 * time.Minute,
	})
	var src driven.ConfigSource
	if source != nil {
		src = source
	}
	f.manager = NewSchedulerManager(f.sched, orch, f.endpoints, src, ManagerConfig{
		HealthInterval:    time.Hour, // keep the loop quiet during tests
		StuckJobThreshold: time.Hour,
	})
	return f
}

func TestManagerStartSeedsEndpointsAndSchedules(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource(intervalEndpoint("ep-1", time.Hour))
	f := newManagerFixture(t, source)

	require.NoError(t, f.manager.Start(ctx))
	defer f.manager.Stop(true)

	stored, err := f.endpoints.Get(ctx, "ep-1")
	require.NoError(t, err)
	assert.True(t, stored.Active)

	assert.True(t, f.sched.Running())
	assert.Len(t, f.sched.JobStatuses(), 1)

	// Second start is a no-op.
	require.NoError(t, f.manager.Start(ctx))
}

func TestManagerStartWithoutSource(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, nil)

	require.NoError(t, f.endpoints.Save(ctx, intervalEndpoint("ep-1", time.Hour)))
	require.NoError(t, f.manager.Start(ctx))
	defer f.manager.Stop(true)

	assert.Len(t, f.sched.JobStatuses(), 1)
}

func TestManagerReloadConfigurationRequiresRunning(t *testing.T) {
	f := newManagerFixture(t, newFakeSource())
	err := f.manager.ReloadConfiguration(context.Background())
	assert.ErrorIs(t, err, domain.ErrSchedulerNotRunning)
}

func TestManagerReloadConfigurationReplacesJobs(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource(intervalEndpoint("ep-1", time.Hour))
	f := newManagerFixture(t, source)

	require.NoError(t, f.manager.Start(ctx))
	defer f.manager.Stop(true)

	ep2 := intervalEndpoint("ep-2", 30*time.Minute)
	source.set(intervalEndpoint("ep-1", time.Hour), ep2)

	require.NoError(t, f.manager.ReloadConfiguration(ctx))
	assert.Len(t, f.sched.JobStatuses(), 2)
	assert.NotNil(t, f.sched.JobStatus(ep2.JobID()))
}

func TestManagerConfigWatchTriggersReload(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource(intervalEndpoint("ep-1", time.Hour))
	f := newManagerFixture(t, source)

	require.NoError(t, f.manager.Start(ctx))
	defer f.manager.Stop(true)

	source.set(intervalEndpoint("ep-1", time.Hour), intervalEndpoint("ep-2", time.Hour))

	require.Eventually(t, func() bool {
		return len(f.sched.JobStatuses()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManagerTriggerSync(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, newFakeSource(intervalEndpoint("ep-1", time.Hour)))

	require.NoError(t, f.manager.Start(ctx))
	defer f.manager.Stop(true)

	result, err := f.manager.TriggerSync(ctx, "ep-1")
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, err = f.manager.TriggerSync(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManagerTriggerProjectSync(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, newFakeSource(
		intervalEndpoint("ep-1", time.Hour),
		intervalEndpoint("ep-2", time.Hour),
	))

	require.NoError(t, f.manager.Start(ctx))
	defer f.manager.Stop(true)

	stats, err := f.manager.TriggerProjectSync(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEndpoints)
	assert.Equal(t, 2, stats.SuccessfulSyncs)
}

func TestManagerHealthWhileRunning(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, newFakeSource(intervalEndpoint("ep-1", time.Hour)))

	require.NoError(t, f.manager.Start(ctx))
	defer f.manager.Stop(true)

	health := f.manager.Health(ctx)
	assert.Equal(t, domain.HealthHealthy, health.Status)
	assert.True(t, health.SchedulerRunning)
	assert.Equal(t, 1, health.Stats.TotalJobs)
}

func TestManagerHealthSchedulerStopped(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, newFakeSource())

	health := f.manager.Health(ctx)
	assert.Equal(t, domain.HealthUnhealthy, health.Status)
	assert.False(t, health.SchedulerRunning)
	require.NotEmpty(t, health.Issues)
	assert.Contains(t, health.Issues[0], "not running")
}

func TestManagerHealthErrorsExceedSuccesses(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, newFakeSource(intervalEndpoint("ep-1", time.Hour)))

	require.NoError(t, f.manager.Start(ctx))
	defer f.manager.Stop(true)

	jobID := intervalEndpoint("ep-1", time.Hour).JobID()
	f.sched.mu.Lock()
	f.sched.jobs[jobID].record.RunCount = 3
	f.sched.jobs[jobID].record.ErrorCount = 3
	f.sched.mu.Unlock()

	health := f.manager.Health(ctx)
	assert.Equal(t, domain.HealthDegraded, health.Status)
}

func TestManagerHealthDetectsStuckJob(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, newFakeSource(intervalEndpoint("ep-1", time.Hour)))

	require.NoError(t, f.manager.Start(ctx))
	defer f.manager.Stop(true)

	jobID := intervalEndpoint("ep-1", time.Hour).JobID()
	f.sched.mu.Lock()
	f.sched.jobs[jobID].record.RunCount = 1
	f.sched.jobs[jobID].record.LastRun = time.Now().Add(-2 * time.Hour)
	f.sched.mu.Unlock()

	health := f.manager.Health(ctx)
	assert.Equal(t, domain.HealthDegraded, health.Status)

	found := false
	for _, issue := range health.Issues {
		if strings.Contains(issue, "stuck") {
			found = true
		}
	}
	assert.True(t, found, "expected a stuck-job issue, got %v", health.Issues)
}

func TestManagerHealthDetectsDeadTrigger(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t, newFakeSource(intervalEndpoint("ep-1", time.Hour)))

	require.NoError(t, f.manager.Start(ctx))
	defer f.manager.Stop(true)

	// Last firing completed fine, but nothing has fired since.
	jobID := intervalEndpoint("ep-1", time.Hour).JobID()
	f.sched.mu.Lock()
	f.sched.jobs[jobID].record.RunCount = 1
	f.sched.jobs[jobID].record.SuccessCount = 1
	f.sched.jobs[jobID].record.LastRun = time.Now().Add(-2 * time.Hour)
	f.sched.mu.Unlock()

	health := f.manager.Health(ctx)
	assert.Equal(t, domain.HealthDegraded, health.Status)

	found := false
	for _, issue := range health.Issues {
		if strings.Contains(issue, "stuck") {
			found = true
		}
	}
	assert.True(t, found, "expected a stuck-job issue, got %v", health.Issues)
}

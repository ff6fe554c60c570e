package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driving"
)

// mockManager implements Manager for testing.
type mockManager struct {
	health    *domain.Health
	started   bool
	stopped   bool
	stopWait  bool
	reloaded  bool
	startErr  error
	reloadErr error
}

func (m *mockManager) Start(_ context.Context) error {
	m.started = true
	return m.startErr
}

func (m *mockManager) Stop(wait bool) error {
	m.stopped = true
	m.stopWait = wait
	return nil
}

func (m *mockManager) ReloadConfiguration(_ context.Context) error {
	m.reloaded = true
	return m.reloadErr
}

func (m *mockManager) Health(_ context.Context) *domain.Health {
	return m.health
}

func TestStatusCmd_Healthy(t *testing.T) {
	m := &mockManager{health: &domain.Health{
		Status:           domain.HealthHealthy,
		SchedulerRunning: true,
		Stats: domain.SchedulerStats{
			TotalJobs:      2,
			TotalRuns:      10,
			TotalSuccesses: 9,
			TotalErrors:    1,
		},
	}}
	cleanup := withServices(nil, nil, m)
	defer cleanup()

	out, err := execute(t, "status")

	assert.NoError(t, err)
	assert.Contains(t, out, "Status: healthy")
	assert.Contains(t, out, "Scheduler running: true")
	assert.Contains(t, out, "Jobs: 2 (10 runs, 9 ok, 1 failed, 0 missed)")
}

func TestStatusCmd_DegradedListsIssues(t *testing.T) {
	health := &domain.Health{Status: domain.HealthHealthy}
	health.Degrade("scheduler is not running")
	m := &mockManager{health: health}
	cleanup := withServices(nil, nil, m)
	defer cleanup()

	out, err := execute(t, "status")

	assert.NoError(t, err)
	assert.Contains(t, out, "Status: degraded")
	assert.Contains(t, out, "scheduler is not running")
}

func TestStatusCmd_Endpoint(t *testing.T) {
	started := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := &mockSyncer{status: &driving.EndpointStatus{
		Endpoint: domain.Endpoint{
			ID:        "ep-1",
			Name:      "Main Drive",
			Vendor:    domain.VendorGoogleDrive,
			ProjectID: "proj-1",
			Active:    true,
			Schedule:  domain.Schedule{Type: domain.ScheduleInterval, Interval: 30 * time.Minute},
		},
		FileCount: 17,
		RecentSyncs: []domain.SyncLog{
			{StartedAt: started, Status: domain.SyncStatusSuccess, FilesProcessed: 17},
			{StartedAt: started.Add(-time.Hour), Status: domain.SyncStatusFailed, ErrorMessage: "boom"},
		},
	}}
	cleanup := withServices(s, nil, nil)
	defer cleanup()

	out, err := execute(t, "status", "ep-1")

	assert.NoError(t, err)
	assert.Contains(t, out, "Endpoint: Main Drive (ep-1)")
	assert.Contains(t, out, "Vendor: google_drive")
	assert.Contains(t, out, "every 30m")
	assert.Contains(t, out, "Last sync: never")
	assert.Contains(t, out, "Files tracked: 17")
	assert.Contains(t, out, "boom")
}

func TestStatusCmd_Project(t *testing.T) {
	s := &mockSyncer{status: &driving.EndpointStatus{
		Endpoint: domain.Endpoint{
			ID:        "ep-1",
			Name:      "Main Drive",
			Vendor:    domain.VendorGoogleDrive,
			ProjectID: "proj-1",
			Active:    true,
		},
		FileCount: 5,
	}}
	cleanup := withServices(s, nil, nil)
	defer cleanup()
	t.Cleanup(func() { statusProjectFlag = "" })

	out, err := execute(t, "status", "--project", "proj-1")

	assert.NoError(t, err)
	assert.Contains(t, out, "ep-1")
	assert.Contains(t, out, "5 files")
}

func TestStatusCmd_ProjectEmpty(t *testing.T) {
	cleanup := withServices(&mockSyncer{}, nil, nil)
	defer cleanup()
	t.Cleanup(func() { statusProjectFlag = "" })

	out, err := execute(t, "status", "--project", "proj-9")

	assert.NoError(t, err)
	assert.Contains(t, out, "No endpoints in project proj-9.")
}

func TestStatusCmd_EndpointNotFound(t *testing.T) {
	s := &mockSyncer{err: domain.ErrNotFound}
	cleanup := withServices(s, nil, nil)
	defer cleanup()

	_, err := execute(t, "status", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatusCmd_ManagerNotConfigured(t *testing.T) {
	cleanup := withServices(nil, nil, nil)
	defer cleanup()

	_, err := execute(t, "status")

	assert.ErrorContains(t, err, "not configured")
}

package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driving"
)

// mockSyncer implements driving.Syncer for testing.
type mockSyncer struct {
	syncedID      string
	syncedReq     driving.SyncRequest
	batchReq      driving.BatchRequest
	activatedID   string
	deactivatedID string

	result    *domain.SyncResult
	stats     *domain.SyncStats
	status    *driving.EndpointStatus
	endpoints []domain.Endpoint
	err       error
}

func (m *mockSyncer) SyncEndpointByID(_ context.Context, endpointID string, req driving.SyncRequest) (*domain.SyncResult, error) {
	m.syncedID = endpointID
	m.syncedReq = req
	return m.result, m.err
}

func (m *mockSyncer) SyncAll(_ context.Context, req driving.BatchRequest) (*domain.SyncStats, error) {
	m.batchReq = req
	return m.stats, m.err
}

func (m *mockSyncer) SyncProject(_ context.Context, projectID string, req driving.BatchRequest) (*domain.SyncStats, error) {
	req.ProjectID = projectID
	m.batchReq = req
	return m.stats, m.err
}

func (m *mockSyncer) SyncIncremental(ctx context.Context, req driving.BatchRequest) (*domain.SyncStats, error) {
	return m.SyncAll(ctx, req)
}

func (m *mockSyncer) AddEndpoint(_ context.Context, endpoint domain.Endpoint) (*domain.Endpoint, error) {
	if m.err != nil {
		return nil, m.err
	}
	endpoint.ID = "ep-generated"
	return &endpoint, nil
}

func (m *mockSyncer) ActivateEndpoint(_ context.Context, endpointID string) error {
	m.activatedID = endpointID
	return m.err
}

func (m *mockSyncer) DeactivateEndpoint(_ context.Context, endpointID string) error {
	m.deactivatedID = endpointID
	return m.err
}

func (m *mockSyncer) ListEndpoints(_ context.Context, _ domain.EndpointFilter) ([]domain.Endpoint, error) {
	return m.endpoints, m.err
}

func (m *mockSyncer) EndpointStatus(_ context.Context, _ string) (*driving.EndpointStatus, error) {
	return m.status, m.err
}

func (m *mockSyncer) ProjectStatus(_ context.Context, _ string) ([]driving.EndpointStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.status == nil {
		return nil, nil
	}
	return []driving.EndpointStatus{*m.status}, nil
}

func (m *mockSyncer) HealthCheck(_ context.Context) *domain.Health {
	return &domain.Health{Status: domain.HealthHealthy}
}

// execute runs the root command with the given args and returns its
// combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return buf.String(), err
}

// withServices swaps in test services and suppresses the production
// bootstrap for the duration of a test.
func withServices(s driving.Syncer, sch driving.Scheduler, m Manager) func() {
	oldSyncer, oldScheduler, oldManager, oldConfigured := syncer, scheduler, manager, configured
	syncer, scheduler, manager, configured = s, sch, m, true
	return func() {
		syncer, scheduler, manager, configured = oldSyncer, oldScheduler, oldManager, oldConfigured
	}
}

func setupSyncTest(m *mockSyncer) func() {
	restore := withServices(m, nil, nil)
	return func() {
		restore()
		syncProjectFlag = ""
		syncVendorFlag = ""
		syncSinceFlag = ""
		syncMaxFilesFlag = 0
		syncIncrementalFlag = false
	}
}

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync [endpoint-id]", syncCmd.Use)
}

func TestSyncCmd_AllEndpoints(t *testing.T) {
	m := &mockSyncer{stats: &domain.SyncStats{
		TotalEndpoints:      3,
		SuccessfulSyncs:     2,
		FailedSyncs:         1,
		TotalFilesProcessed: 42,
	}}
	cleanup := setupSyncTest(m)
	defer cleanup()

	out, err := execute(t, "sync")

	assert.NoError(t, err)
	assert.Contains(t, out, "Syncing all active endpoints...")
	assert.Contains(t, out, "Synced 3 endpoints: 2 succeeded, 1 failed")
	assert.Contains(t, out, "Processed 42 files")
}

func TestSyncCmd_SingleEndpoint(t *testing.T) {
	m := &mockSyncer{result: &domain.SyncResult{
		EndpointID:     "ep-1",
		Success:        true,
		FilesProcessed: 10,
		FilesAdded:     4,
		FilesUpdated:   2,
		FilesSkipped:   4,
	}}
	cleanup := setupSyncTest(m)
	defer cleanup()

	out, err := execute(t, "sync", "ep-1")

	assert.NoError(t, err)
	assert.Equal(t, "ep-1", m.syncedID)
	assert.Contains(t, out, "Processed 10 files (4 added, 2 updated, 4 skipped)")
}

func TestSyncCmd_SingleEndpointFailure(t *testing.T) {
	m := &mockSyncer{result: &domain.SyncResult{
		EndpointID:   "ep-1",
		Success:      false,
		ErrorMessage: "listing failed",
	}}
	cleanup := setupSyncTest(m)
	defer cleanup()

	_, err := execute(t, "sync", "ep-1")

	assert.ErrorContains(t, err, "listing failed")
}

func TestSyncCmd_SinceFlag(t *testing.T) {
	m := &mockSyncer{result: &domain.SyncResult{Success: true}}
	cleanup := setupSyncTest(m)
	defer cleanup()

	_, err := execute(t, "sync", "ep-1", "--since", "2026-03-10T12:00:00Z")

	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), m.syncedReq.Since)
}

func TestSyncCmd_BadSinceFlag(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncer{})
	defer cleanup()

	_, err := execute(t, "sync", "ep-1", "--since", "yesterday")

	assert.ErrorContains(t, err, "parsing --since")
}

func TestSyncCmd_FilterFlags(t *testing.T) {
	m := &mockSyncer{stats: &domain.SyncStats{}}
	cleanup := setupSyncTest(m)
	defer cleanup()

	_, err := execute(t, "sync", "--project", "proj-1", "--vendor", "google_drive", "--max-files", "50")

	assert.NoError(t, err)
	assert.Equal(t, "proj-1", m.batchReq.ProjectID)
	assert.Equal(t, domain.VendorGoogleDrive, m.batchReq.Vendor)
	assert.Equal(t, 50, m.batchReq.MaxFilesPerEndpoint)
}

func TestSyncCmd_IncrementalFlag(t *testing.T) {
	m := &mockSyncer{stats: &domain.SyncStats{TotalEndpoints: 1, SuccessfulSyncs: 1}}
	cleanup := setupSyncTest(m)
	defer cleanup()

	out, err := execute(t, "sync", "--incremental")

	assert.NoError(t, err)
	assert.Contains(t, out, "Synced 1 endpoints: 1 succeeded")
}

func TestSyncCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := withServices(nil, nil, nil)
	defer cleanup()

	_, err := execute(t, "sync")

	assert.ErrorContains(t, err, "not configured")
}

package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
	"github.com/custodia-labs/filebridge/internal/core/ports/driving"
	"github.com/custodia-labs/filebridge/internal/logger"
)

// defaultSyncConcurrency bounds how many endpoints a batch syncs at once.
const defaultSyncConcurrency = 4

// Orchestrator implements driving.Syncer. It resolves endpoints from
// storage, delegates single-endpoint work to the sync engine and fans
// batches out across a bounded worker group.
type Orchestrator struct {
	endpoints driven.EndpointStore
	files     driven.FileStore
	syncLogs  driven.SyncLogStore
	factory   driven.ClientFactory
	engine    *SyncEngine

	// concurrency is the batch fan-out width.
	concurrency int

	now func() time.Time
}

// NewOrchestrator creates an orchestrator around the given engine.
// concurrency <= 0 selects the default.
func NewOrchestrator(
	endpoints driven.EndpointStore,
	files driven.FileStore,
	syncLogs driven.SyncLogStore,
	factory driven.ClientFactory,
	engine *SyncEngine,
	concurrency int,
) *Orchestrator {
	if concurrency <= 0 {
		concurrency = defaultSyncConcurrency
	}
	return &Orchestrator{
		endpoints:   endpoints,
		files:       files,
		syncLogs:    syncLogs,
		factory:     factory,
		engine:      engine,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// SyncEndpointByID syncs one endpoint by ID. The endpoint must exist
// and be active.
func (o *Orchestrator) SyncEndpointByID(ctx context.Context, endpointID string, req driving.SyncRequest) (*domain.SyncResult, error) {
	endpoint, err := o.endpoints.Get(ctx, endpointID)
	if err != nil {
		return nil, err
	}
	if !endpoint.Active {
		return nil, fmt.Errorf("endpoint %q: %w", endpointID, domain.ErrEndpointInactive)
	}
	return o.engine.SyncEndpoint(ctx, *endpoint, req), nil
}

// SyncAll syncs every active endpoint matching the request. Endpoints
// run concurrently up to the configured width; per-endpoint failures
// are folded into the stats, never returned as errors.
func (o *Orchestrator) SyncAll(ctx context.Context, req driving.BatchRequest) (*domain.SyncStats, error) {
	filter := domain.EndpointFilter{Vendor: req.Vendor, ProjectID: req.ProjectID}
	endpoints, err := o.endpoints.ListActive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing active endpoints: %w", err)
	}

	start := o.now()
	stats := &domain.SyncStats{TotalEndpoints: len(endpoints)}
	if len(endpoints) == 0 {
		logger.Info("no active endpoints match the sync request")
		return stats, nil
	}

	logger.Info("starting batch sync of %d endpoints (concurrency %d)", len(endpoints), o.concurrency)

	results := make([]*domain.SyncResult, len(endpoints))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, endpoint := range endpoints {
		g.Go(func() error {
			result := o.engine.SyncEndpoint(gctx, endpoint, driving.SyncRequest{
				MaxFiles: req.MaxFilesPerEndpoint,
			})
			mu.Lock()
			results[i] = result
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; Wait only fences completion.
	_ = g.Wait()

	for _, result := range results {
		if result == nil || !result.Success {
			stats.FailedSyncs++
			continue
		}
		stats.SuccessfulSyncs++
		stats.TotalFilesProcessed += result.FilesProcessed
		stats.TotalFilesChanged += result.FilesChanged()
	}
	stats.TotalDuration = o.now().Sub(start)

	logger.Info("batch sync finished: %d/%d succeeded, %d files processed, %d changed, took %s",
		stats.SuccessfulSyncs, stats.TotalEndpoints, stats.TotalFilesProcessed,
		stats.TotalFilesChanged, stats.TotalDuration)

	return stats, nil
}

// SyncProject syncs every active endpoint of one project.
func (o *Orchestrator) SyncProject(ctx context.Context, projectID string, req driving.BatchRequest) (*domain.SyncStats, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id required: %w", domain.ErrInvalidInput)
	}
	req.ProjectID = projectID
	return o.SyncAll(ctx, req)
}

// SyncIncremental syncs all matching endpoints from their own
// watermarks. The engine resolves each endpoint's watermark (or the
// epoch floor) when no explicit since is given, so this is SyncAll by
// construction; the name documents the intent at call sites.
func (o *Orchestrator) SyncIncremental(ctx context.Context, req driving.BatchRequest) (*domain.SyncStats, error) {
	return o.SyncAll(ctx, req)
}

// AddEndpoint validates and stores a new endpoint. A missing ID is
// generated; an existing ID is rejected.
func (o *Orchestrator) AddEndpoint(ctx context.Context, endpoint domain.Endpoint) (*domain.Endpoint, error) {
	if endpoint.ID == "" {
		endpoint.ID = uuid.NewString()
	}
	if err := endpoint.Validate(); err != nil {
		return nil, err
	}

	if _, err := o.endpoints.Get(ctx, endpoint.ID); err == nil {
		return nil, fmt.Errorf("endpoint %q: %w", endpoint.ID, domain.ErrAlreadyExists)
	}

	if err := o.endpoints.Save(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("saving endpoint %q: %w", endpoint.ID, err)
	}

	stored, err := o.endpoints.Get(ctx, endpoint.ID)
	if err != nil {
		return nil, err
	}
	logger.Info("added endpoint %s (%s, vendor %s)", stored.ID, stored.Name, stored.Vendor)
	return stored, nil
}

// ActivateEndpoint marks an endpoint active.
func (o *Orchestrator) ActivateEndpoint(ctx context.Context, endpointID string) error {
	return o.endpoints.SetActive(ctx, endpointID, true)
}

// DeactivateEndpoint marks an endpoint inactive.
func (o *Orchestrator) DeactivateEndpoint(ctx context.Context, endpointID string) error {
	return o.endpoints.SetActive(ctx, endpointID, false)
}

// ListEndpoints returns endpoints matching the filter, including
// inactive ones.
func (o *Orchestrator) ListEndpoints(ctx context.Context, filter domain.EndpointFilter) ([]domain.Endpoint, error) {
	return o.endpoints.List(ctx, filter)
}

// EndpointStatus reports an endpoint's configuration, file count and
// recent sync history.
func (o *Orchestrator) EndpointStatus(ctx context.Context, endpointID string) (*driving.EndpointStatus, error) {
	endpoint, err := o.endpoints.Get(ctx, endpointID)
	if err != nil {
		return nil, err
	}

	count, err := o.files.CountByEndpoint(ctx, endpointID)
	if err != nil {
		return nil, fmt.Errorf("counting files for endpoint %q: %w", endpointID, err)
	}

	recent, err := o.syncLogs.Recent(ctx, endpointID, 10)
	if err != nil {
		return nil, fmt.Errorf("loading sync history for endpoint %q: %w", endpointID, err)
	}

	return &driving.EndpointStatus{
		Endpoint:    *endpoint,
		FileCount:   count,
		RecentSyncs: recent,
	}, nil
}

// ProjectStatus reports the status of every endpoint in a project,
// active or not.
func (o *Orchestrator) ProjectStatus(ctx context.Context, projectID string) ([]driving.EndpointStatus, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id required", domain.ErrInvalidInput)
	}

	endpoints, err := o.endpoints.List(ctx, domain.EndpointFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	statuses := make([]driving.EndpointStatus, 0, len(endpoints))
	for _, endpoint := range endpoints {
		status, err := o.EndpointStatus(ctx, endpoint.ID)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *status)
	}
	return statuses, nil
}

// HealthCheck probes endpoint storage and, for each vendor with active
// endpoints, that a client can be constructed from the stored
// configuration. It never returns an error; problems lower the status.
func (o *Orchestrator) HealthCheck(ctx context.Context) *domain.Health {
	health := &domain.Health{
		Status:    domain.HealthHealthy,
		CheckedAt: o.now(),
	}

	endpoints, err := o.endpoints.ListActive(ctx, domain.EndpointFilter{})
	if err != nil {
		health.Fail(fmt.Sprintf("endpoint storage unreachable: %v", err))
		return health
	}

	// One probe per vendor, on the first active endpoint seen for it.
	probed := make(map[domain.VendorType]bool)
	for _, endpoint := range endpoints {
		if probed[endpoint.Vendor] {
			continue
		}
		probed[endpoint.Vendor] = true

		client, err := o.factory.Create(endpoint)
		if err != nil {
			health.Degrade(fmt.Sprintf("vendor %s: cannot build client: %v", endpoint.Vendor, err))
			continue
		}
		client.Close()
	}

	return health
}

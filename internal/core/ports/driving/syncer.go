package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

// SyncRequest tunes a single-endpoint sync.
type SyncRequest struct {
	// Since overrides the endpoint's watermark when non-zero.
	Since time.Time

	// MaxFiles caps files processed; zero means the endpoint's own cap
	// (or the engine's global cap) applies.
	MaxFiles int
}

// BatchRequest tunes a multi-endpoint sync.
type BatchRequest struct {
	// Vendor restricts the batch to one vendor type when set.
	Vendor domain.VendorType

	// ProjectID restricts the batch to one project when set.
	ProjectID string

	// MaxFilesPerEndpoint caps files per endpoint; zero means each
	// endpoint's own cap applies.
	MaxFilesPerEndpoint int
}

// Syncer orchestrates endpoint synchronisation.
type Syncer interface {
	// SyncEndpointByID syncs one endpoint. The endpoint must exist and
	// be active; otherwise domain.ErrNotFound or
	// domain.ErrEndpointInactive is returned with no state changed.
	SyncEndpointByID(ctx context.Context, endpointID string, req SyncRequest) (*domain.SyncResult, error)

	// SyncAll syncs every active endpoint matching the request
	// concurrently. Individual failures are counted, never propagated.
	SyncAll(ctx context.Context, req BatchRequest) (*domain.SyncStats, error)

	// SyncProject syncs every active endpoint of one project.
	SyncProject(ctx context.Context, projectID string, req BatchRequest) (*domain.SyncStats, error)

	// SyncIncremental is SyncAll with since forced to each endpoint's
	// own watermark (or the epoch floor when never synced).
	SyncIncremental(ctx context.Context, req BatchRequest) (*domain.SyncStats, error)

	// AddEndpoint validates and stores a new endpoint.
	AddEndpoint(ctx context.Context, endpoint domain.Endpoint) (*domain.Endpoint, error)

	// ActivateEndpoint and DeactivateEndpoint flip an endpoint's
	// active flag.
	ActivateEndpoint(ctx context.Context, endpointID string) error
	DeactivateEndpoint(ctx context.Context, endpointID string) error

	// ListEndpoints returns endpoints matching the filter, including
	// inactive ones.
	ListEndpoints(ctx context.Context, filter domain.EndpointFilter) ([]domain.Endpoint, error)

	// EndpointStatus reports an endpoint's configuration, file count and
	// recent sync history.
	EndpointStatus(ctx context.Context, endpointID string) (*EndpointStatus, error)

	// ProjectStatus reports the status of every endpoint in a project.
	ProjectStatus(ctx context.Context, projectID string) ([]EndpointStatus, error)

	// HealthCheck probes storage and vendor client construction.
	HealthCheck(ctx context.Context) *domain.Health
}

// EndpointStatus is the detailed status view of one endpoint.
type EndpointStatus struct {
	Endpoint    domain.Endpoint
	FileCount   int
	RecentSyncs []domain.SyncLog
}

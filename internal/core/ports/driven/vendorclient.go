package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

// VendorClient fetches file listings from one external storage service.
// Each vendor type (Google Drive, Autodesk Construction Cloud) implements
// this interface.
type VendorClient interface {
	// Type returns the vendor type identifier.
	Type() domain.VendorType

	// Authenticate establishes or refreshes the client's credentials.
	// Failures carry a domain.VendorError kind: auth-transient for
	// expired tokens, permanent for structurally invalid credentials.
	Authenticate(ctx context.Context) error

	// ListFiles enumerates files modified after since, up to maxResults.
	// The returned channels form a finite, single-pass stream: metadata
	// arrives on the first channel; at most one terminal error arrives on
	// the second. Both are closed when the listing ends. The stream is
	// not restartable; callers wanting a retry start a new listing.
	ListFiles(ctx context.Context, since time.Time, maxResults int) (<-chan domain.FileMetadata, <-chan error)

	// GetFileMetadata fetches one file's metadata by vendor-native ID.
	// Returns domain.ErrNotFound if the file does not exist.
	GetFileMetadata(ctx context.Context, externalID string) (*domain.FileMetadata, error)

	// HealthCheck reports whether the vendor service is reachable with
	// the configured credentials.
	HealthCheck(ctx context.Context) bool

	// Close releases client resources.
	Close() error
}

// ClientBuilder constructs a VendorClient from an endpoint's
// vendor-specific details.
type ClientBuilder func(endpoint domain.Endpoint) (VendorClient, error)

// ClientFactory creates vendor clients from endpoint configuration.
// It maintains a closed registry of vendor types and their builders.
type ClientFactory interface {
	// Create returns a client for the endpoint's vendor type.
	// Returns domain.ErrUnsupportedType for unknown vendors.
	Create(endpoint domain.Endpoint) (VendorClient, error)

	// Register adds a builder for the given vendor type.
	Register(vendor domain.VendorType, builder ClientBuilder)

	// SupportedVendors returns all registered vendor types.
	SupportedVendors() []domain.VendorType
}

package connectors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
)

// Factory implements driven.ClientFactory over a registry of builders.
type Factory struct {
	mu       sync.RWMutex
	builders map[domain.VendorType]driven.ClientBuilder
}

var _ driven.ClientFactory = (*Factory)(nil)

// NewFactory creates an empty factory. Builders are registered by the
// application wiring.
func NewFactory() *Factory {
	return &Factory{builders: make(map[domain.VendorType]driven.ClientBuilder)}
}

// Create returns a client for the endpoint's vendor type.
func (f *Factory) Create(endpoint domain.Endpoint) (driven.VendorClient, error) {
	f.mu.RLock()
	builder, ok := f.builders[endpoint.Vendor]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no client registered for vendor %q", domain.ErrUnsupportedType, endpoint.Vendor)
	}
	return builder(endpoint)
}

// Register adds a builder for the given vendor type, replacing any
// previous registration.
func (f *Factory) Register(vendor domain.VendorType, builder driven.ClientBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[vendor] = builder
}

// SupportedVendors returns all registered vendor types, sorted.
func (f *Factory) SupportedVendors() []domain.VendorType {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]domain.VendorType, 0, len(f.builders))
	for vendor := range f.builders {
		out = append(out, vendor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

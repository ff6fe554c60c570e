package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

// EndpointStore is an in-memory driven.EndpointStore.
type EndpointStore struct {
	mu        sync.RWMutex
	endpoints map[string]domain.Endpoint
}

// NewEndpointStore creates an empty endpoint store.
func NewEndpointStore() *EndpointStore {
	return &EndpointStore{endpoints: make(map[string]domain.Endpoint)}
}

// Save stores or updates an endpoint.
func (s *EndpointStore) Save(ctx context.Context, endpoint domain.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.endpoints[endpoint.ID]; ok {
		endpoint.CreatedAt = existing.CreatedAt
	} else if endpoint.CreatedAt.IsZero() {
		endpoint.CreatedAt = now
	}
	endpoint.UpdatedAt = now

	s.endpoints[endpoint.ID] = endpoint
	return nil
}

// Get retrieves an endpoint by ID.
func (s *EndpointStore) Get(ctx context.Context, id string) (*domain.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	endpoint, ok := s.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	return &endpoint, nil
}

// List returns all endpoints matching the filter, ordered by ID.
func (s *EndpointStore) List(ctx context.Context, filter domain.EndpointFilter) ([]domain.Endpoint, error) {
	return s.list(filter, false), nil
}

// ListActive returns active endpoints matching the filter, ordered by ID.
func (s *EndpointStore) ListActive(ctx context.Context, filter domain.EndpointFilter) ([]domain.Endpoint, error) {
	return s.list(filter, true), nil
}

func (s *EndpointStore) list(filter domain.EndpointFilter, activeOnly bool) []domain.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Endpoint
	for _, endpoint := range s.endpoints {
		if activeOnly && !endpoint.Active {
			continue
		}
		if !filter.Matches(&endpoint) {
			continue
		}
		out = append(out, endpoint)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetActive flips an endpoint's active flag.
func (s *EndpointStore) SetActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	endpoint, ok := s.endpoints[id]
	if !ok {
		return fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	endpoint.Active = active
	endpoint.UpdatedAt = time.Now()
	s.endpoints[id] = endpoint
	return nil
}

// UpdateWatermark advances the endpoint's last-sync watermark. Earlier
// or equal timestamps are ignored.
func (s *EndpointStore) UpdateWatermark(ctx context.Context, id string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	endpoint, ok := s.endpoints[id]
	if !ok {
		return fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	if !endpoint.LastSyncAt.IsZero() && !t.After(endpoint.LastSyncAt) {
		return nil
	}
	endpoint.LastSyncAt = t
	endpoint.UpdatedAt = time.Now()
	s.endpoints[id] = endpoint
	return nil
}

// Delete removes an endpoint.
func (s *EndpointStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.endpoints[id]; !ok {
		return fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	delete(s.endpoints, id)
	return nil
}

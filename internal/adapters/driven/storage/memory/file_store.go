package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

type fileKey struct {
	endpointID string
	externalID string
}

// FileStore is an in-memory driven.FileStore.
type FileStore struct {
	mu      sync.RWMutex
	records map[fileKey]domain.FileRecord
}

// NewFileStore creates an empty file store.
func NewFileStore() *FileStore {
	return &FileStore{records: make(map[fileKey]domain.FileRecord)}
}

// Upsert stores the metadata under (endpointID, ExternalID). For
// existing records the returned record carries the vendor timestamps
// from before this upsert so callers can classify updates.
func (s *FileStore) Upsert(ctx context.Context, meta domain.FileMetadata, endpointID string) (*domain.FileRecord, bool, error) {
	if meta.ExternalID == "" {
		return nil, false, fmt.Errorf("file external id required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := fileKey{endpointID: endpointID, externalID: meta.ExternalID}
	now := time.Now()

	if existing, ok := s.records[key]; ok {
		before := existing

		existing.Name = meta.Name
		existing.Path = meta.Path
		existing.Link = meta.Link
		existing.Size = meta.Size
		existing.MIMEType = meta.MIMEType
		existing.ExternalCreatedAt = meta.ExternalCreatedAt
		existing.ExternalUpdatedAt = meta.ExternalUpdatedAt
		existing.LastSeenAt = now
		s.records[key] = existing

		before.LastSeenAt = now
		return &before, false, nil
	}

	record := domain.FileRecord{
		ID:                uuid.NewString(),
		EndpointID:        endpointID,
		ExternalID:        meta.ExternalID,
		Name:              meta.Name,
		Path:              meta.Path,
		Link:              meta.Link,
		Size:              meta.Size,
		MIMEType:          meta.MIMEType,
		ExternalCreatedAt: meta.ExternalCreatedAt,
		ExternalUpdatedAt: meta.ExternalUpdatedAt,
		FirstSeenAt:       now,
		LastSeenAt:        now,
	}
	s.records[key] = record
	return &record, true, nil
}

// Get retrieves a record by endpoint and vendor-native ID.
func (s *FileStore) Get(ctx context.Context, endpointID, externalID string) (*domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[fileKey{endpointID: endpointID, externalID: externalID}]
	if !ok {
		return nil, fmt.Errorf("file %q for endpoint %q: %w", externalID, endpointID, domain.ErrNotFound)
	}
	return &record, nil
}

// CountByEndpoint returns the number of records for an endpoint.
func (s *FileStore) CountByEndpoint(ctx context.Context, endpointID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key := range s.records {
		if key.endpointID == endpointID {
			count++
		}
	}
	return count, nil
}

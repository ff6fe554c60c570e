package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

// SyncLogStore is an in-memory driven.SyncLogStore.
type SyncLogStore struct {
	mu   sync.RWMutex
	logs map[string]domain.SyncLog
}

// NewSyncLogStore creates an empty sync-log store.
func NewSyncLogStore() *SyncLogStore {
	return &SyncLogStore{logs: make(map[string]domain.SyncLog)}
}

// Start creates a running sync-log entry and returns its ID.
func (s *SyncLogStore) Start(ctx context.Context, endpointID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := domain.SyncLog{
		ID:         uuid.NewString(),
		EndpointID: endpointID,
		StartedAt:  time.Now(),
		Status:     domain.SyncStatusRunning,
	}
	s.logs[entry.ID] = entry
	return entry.ID, nil
}

// Complete finalises a sync-log entry with its outcome.
func (s *SyncLogStore) Complete(ctx context.Context, logID string, log domain.SyncLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.logs[logID]
	if !ok {
		return fmt.Errorf("sync log %q: %w", logID, domain.ErrNotFound)
	}

	log.ID = existing.ID
	if log.EndpointID == "" {
		log.EndpointID = existing.EndpointID
	}
	if log.StartedAt.IsZero() {
		log.StartedAt = existing.StartedAt
	}
	if log.CompletedAt.IsZero() {
		log.CompletedAt = time.Now()
	}
	s.logs[logID] = log
	return nil
}

// Recent returns the most recent entries for an endpoint, newest first.
func (s *SyncLogStore) Recent(ctx context.Context, endpointID string, limit int) ([]domain.SyncLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.SyncLog
	for _, log := range s.logs {
		if log.EndpointID == endpointID {
			out = append(out, log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

// SchedulerStore is an in-memory driven.SchedulerStore.
type SchedulerStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.JobRecord
}

// NewSchedulerStore creates an empty scheduler store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{jobs: make(map[string]domain.JobRecord)}
}

// SaveJob creates or updates a job record by ID.
func (s *SchedulerStore) SaveJob(ctx context.Context, job *domain.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

// GetJob retrieves a job record, or nil if it does not exist.
func (s *SchedulerStore) GetJob(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

// ListJobs returns all persisted job records, ordered by ID.
func (s *SchedulerStore) ListJobs(ctx context.Context) ([]domain.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.JobRecord, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteJob removes a job record.
func (s *SchedulerStore) DeleteJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

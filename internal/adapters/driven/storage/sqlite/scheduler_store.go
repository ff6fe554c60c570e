package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const jobColumns = `id, endpoint_id, endpoint_name, vendor, project_id,
	schedule_type, schedule_interval_seconds, schedule_cron,
	run_count, success_count, error_count, missed_count,
	last_run, next_run, last_result, registered, created_at`

// SaveJob creates or updates a job record by ID.
func (s *schedulerStore) SaveJob(ctx context.Context, job *domain.JobRecord) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}

	var lastResultJSON any
	if job.LastResult != nil {
		data, err := json.Marshal(job.LastResult)
		if err != nil {
			return fmt.Errorf("marshalling last result: %w", err)
		}
		lastResultJSON = string(data)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduler_jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			endpoint_id = excluded.endpoint_id,
			endpoint_name = excluded.endpoint_name,
			vendor = excluded.vendor,
			project_id = excluded.project_id,
			schedule_type = excluded.schedule_type,
			schedule_interval_seconds = excluded.schedule_interval_seconds,
			schedule_cron = excluded.schedule_cron,
			run_count = excluded.run_count,
			success_count = excluded.success_count,
			error_count = excluded.error_count,
			missed_count = excluded.missed_count,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_result = excluded.last_result,
			registered = excluded.registered
	`, job.ID, job.EndpointID, job.EndpointName, string(job.Vendor), job.ProjectID,
		string(job.Schedule.Type), int64(job.Schedule.Interval.Seconds()), job.Schedule.CronExpr,
		job.RunCount, job.SuccessCount, job.ErrorCount, job.MissedCount,
		nullTime(job.LastRun), nullTime(job.NextRun), lastResultJSON,
		boolToInt(job.Registered), job.CreatedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving job: %w", err)
	}
	return nil
}

// GetJob retrieves a job record.
// Returns nil and no error if the job does not exist.
func (s *schedulerStore) GetJob(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM scheduler_jobs WHERE id = ?
	`, jobID)

	job, err := scanJobRecord(row)
	if err == domain.ErrNotFound {
		return nil, nil // Per interface: return nil and no error if not found
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns all persisted job records.
func (s *schedulerStore) ListJobs(ctx context.Context) ([]domain.JobRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM scheduler_jobs ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.JobRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanJobRecord(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}

	return jobs, nil
}

// DeleteJob removes a job record.
func (s *schedulerStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM scheduler_jobs WHERE id = ?", jobID)
	if err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}
	return nil
}

// scanJobRecord scans a single job record row.
func scanJobRecord(row rowScanner) (*domain.JobRecord, error) {
	var job domain.JobRecord
	var vendor, scheduleType string
	var intervalSeconds int64
	var lastRun, nextRun sql.NullTime
	var lastResultJSON sql.NullString
	var registered int

	if err := row.Scan(&job.ID, &job.EndpointID, &job.EndpointName, &vendor, &job.ProjectID,
		&scheduleType, &intervalSeconds, &job.Schedule.CronExpr,
		&job.RunCount, &job.SuccessCount, &job.ErrorCount, &job.MissedCount,
		&lastRun, &nextRun, &lastResultJSON, &registered, &job.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning job: %w", err)
	}

	job.Vendor = domain.VendorType(vendor)
	job.Schedule.Type = domain.ScheduleType(scheduleType)
	job.Schedule.Interval = time.Duration(intervalSeconds) * time.Second
	job.LastRun = timeOf(lastRun)
	job.NextRun = timeOf(nextRun)
	job.Registered = registered != 0

	if lastResultJSON.Valid && lastResultJSON.String != "" {
		var result domain.JobResult
		if err := json.Unmarshal([]byte(lastResultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("unmarshalling last result: %w", err)
		}
		job.LastResult = &result
	}

	return &job, nil
}

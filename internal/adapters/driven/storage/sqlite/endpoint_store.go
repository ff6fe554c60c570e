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

// endpointStore implements driven.EndpointStore.
type endpointStore struct {
	store *Store
}

var _ driven.EndpointStore = (*endpointStore)(nil)

const endpointColumns = `id, name, vendor, project_id, user_id, details,
	schedule_type, schedule_interval_seconds, schedule_cron,
	active, max_files_per_sync, description, last_sync_at, created_at, updated_at`

// Save stores or updates an endpoint.
func (s *endpointStore) Save(ctx context.Context, endpoint domain.Endpoint) error {
	detailsJSON, err := json.Marshal(endpoint.Details)
	if err != nil {
		return fmt.Errorf("marshalling details: %w", err)
	}

	now := time.Now().UTC()
	if endpoint.CreatedAt.IsZero() {
		endpoint.CreatedAt = now
	}
	endpoint.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO endpoints (`+endpointColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			vendor = excluded.vendor,
			project_id = excluded.project_id,
			user_id = excluded.user_id,
			details = excluded.details,
			schedule_type = excluded.schedule_type,
			schedule_interval_seconds = excluded.schedule_interval_seconds,
			schedule_cron = excluded.schedule_cron,
			active = excluded.active,
			max_files_per_sync = excluded.max_files_per_sync,
			description = excluded.description,
			updated_at = excluded.updated_at
	`, endpoint.ID, endpoint.Name, string(endpoint.Vendor), endpoint.ProjectID, endpoint.UserID,
		string(detailsJSON), string(endpoint.Schedule.Type),
		int64(endpoint.Schedule.Interval.Seconds()), endpoint.Schedule.CronExpr,
		boolToInt(endpoint.Active), endpoint.MaxFilesPerSync, endpoint.Description,
		nullTime(endpoint.LastSyncAt), endpoint.CreatedAt, endpoint.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving endpoint: %w", err)
	}
	return nil
}

// Get retrieves an endpoint by ID.
func (s *endpointStore) Get(ctx context.Context, id string) (*domain.Endpoint, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+endpointColumns+` FROM endpoints WHERE id = ?
	`, id)
	return scanEndpoint(row)
}

// List returns all endpoints matching the filter.
func (s *endpointStore) List(ctx context.Context, filter domain.EndpointFilter) ([]domain.Endpoint, error) {
	return s.list(ctx, filter, false)
}

// ListActive returns active endpoints matching the filter.
func (s *endpointStore) ListActive(ctx context.Context, filter domain.EndpointFilter) ([]domain.Endpoint, error) {
	return s.list(ctx, filter, true)
}

func (s *endpointStore) list(ctx context.Context, filter domain.EndpointFilter, activeOnly bool) ([]domain.Endpoint, error) {
	query := "SELECT " + endpointColumns + " FROM endpoints WHERE 1=1"
	var args []any
	if activeOnly {
		query += " AND active = 1"
	}
	if filter.Vendor != "" {
		query += " AND vendor = ?"
		args = append(args, string(filter.Vendor))
	}
	if filter.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filter.ProjectID)
	}
	query += " ORDER BY id"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []domain.Endpoint //nolint:prealloc // size unknown from query
	for rows.Next() {
		endpoint, err := scanEndpointRows(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, *endpoint)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating endpoints: %w", err)
	}

	return endpoints, nil
}

// SetActive flips an endpoint's active flag.
func (s *endpointStore) SetActive(ctx context.Context, id string, active bool) error {
	result, err := s.store.db.ExecContext(ctx, `
		UPDATE endpoints SET active = ?, updated_at = ? WHERE id = ?
	`, boolToInt(active), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating endpoint active flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateWatermark advances an endpoint's last-sync watermark. The guard
// in the WHERE clause keeps the watermark from ever moving backward.
func (s *endpointStore) UpdateWatermark(ctx context.Context, id string, t time.Time) error {
	result, err := s.store.db.ExecContext(ctx, `
		UPDATE endpoints SET last_sync_at = ?, updated_at = ?
		WHERE id = ? AND (last_sync_at IS NULL OR last_sync_at < ?)
	`, t.UTC(), time.Now().UTC(), id, t.UTC())
	if err != nil {
		return fmt.Errorf("updating watermark: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Either the endpoint is missing or the stored watermark is newer;
	// only the former is an error.
	var exists int
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM endpoints WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("checking endpoint: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes an endpoint.
func (s *endpointStore) Delete(ctx context.Context, id string) error {
	result, err := s.store.db.ExecContext(ctx, "DELETE FROM endpoints WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting endpoint: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

// scanEndpoint scans a single endpoint row.
func scanEndpoint(row *sql.Row) (*domain.Endpoint, error) {
	var endpoint domain.Endpoint
	var vendor, scheduleType, detailsJSON string
	var intervalSeconds int64
	var active int
	var lastSyncAt sql.NullTime

	if err := row.Scan(&endpoint.ID, &endpoint.Name, &vendor, &endpoint.ProjectID,
		&endpoint.UserID, &detailsJSON, &scheduleType, &intervalSeconds,
		&endpoint.Schedule.CronExpr, &active, &endpoint.MaxFilesPerSync,
		&endpoint.Description, &lastSyncAt, &endpoint.CreatedAt, &endpoint.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning endpoint: %w", err)
	}

	return buildEndpoint(&endpoint, vendor, scheduleType, detailsJSON, intervalSeconds, active, lastSyncAt)
}

// scanEndpointRows scans an endpoint from *sql.Rows.
func scanEndpointRows(rows *sql.Rows) (*domain.Endpoint, error) {
	var endpoint domain.Endpoint
	var vendor, scheduleType, detailsJSON string
	var intervalSeconds int64
	var active int
	var lastSyncAt sql.NullTime

	if err := rows.Scan(&endpoint.ID, &endpoint.Name, &vendor, &endpoint.ProjectID,
		&endpoint.UserID, &detailsJSON, &scheduleType, &intervalSeconds,
		&endpoint.Schedule.CronExpr, &active, &endpoint.MaxFilesPerSync,
		&endpoint.Description, &lastSyncAt, &endpoint.CreatedAt, &endpoint.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scanning endpoint: %w", err)
	}

	return buildEndpoint(&endpoint, vendor, scheduleType, detailsJSON, intervalSeconds, active, lastSyncAt)
}

func buildEndpoint(endpoint *domain.Endpoint, vendor, scheduleType, detailsJSON string,
	intervalSeconds int64, active int, lastSyncAt sql.NullTime) (*domain.Endpoint, error) {
	endpoint.Vendor = domain.VendorType(vendor)
	endpoint.Schedule.Type = domain.ScheduleType(scheduleType)
	endpoint.Schedule.Interval = time.Duration(intervalSeconds) * time.Second
	endpoint.Active = active != 0
	endpoint.LastSyncAt = timeOf(lastSyncAt)

	if detailsJSON != "" {
		if err := json.Unmarshal([]byte(detailsJSON), &endpoint.Details); err != nil {
			return nil, fmt.Errorf("unmarshalling details: %w", err)
		}
	}
	return endpoint, nil
}

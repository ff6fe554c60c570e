package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
)

// syncLogStore implements driven.SyncLogStore.
type syncLogStore struct {
	store *Store
}

var _ driven.SyncLogStore = (*syncLogStore)(nil)

// Start creates a running sync-log entry and returns its ID.
func (s *syncLogStore) Start(ctx context.Context, endpointID string) (string, error) {
	logID := uuid.NewString()
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_logs (id, endpoint_id, started_at, status)
		VALUES (?, ?, ?, ?)
	`, logID, endpointID, time.Now().UTC(), string(domain.SyncStatusRunning))
	if err != nil {
		return "", fmt.Errorf("starting sync log: %w", err)
	}
	return logID, nil
}

// Complete finalises a sync-log entry with its outcome.
func (s *syncLogStore) Complete(ctx context.Context, logID string, log domain.SyncLog) error {
	completedAt := log.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	result, err := s.store.db.ExecContext(ctx, `
		UPDATE sync_logs SET
			completed_at = ?, status = ?,
			files_processed = ?, files_added = ?, files_updated = ?, files_skipped = ?,
			error_message = ?, duration_ms = ?
		WHERE id = ?
	`, completedAt.UTC(), string(log.Status),
		log.FilesProcessed, log.FilesAdded, log.FilesUpdated, log.FilesSkipped,
		log.ErrorMessage, log.Duration.Milliseconds(), logID)
	if err != nil {
		return fmt.Errorf("completing sync log: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sync log %q: %w", logID, domain.ErrNotFound)
	}
	return nil
}

// Recent returns the most recent entries for an endpoint, newest first.
func (s *syncLogStore) Recent(ctx context.Context, endpointID string, limit int) ([]domain.SyncLog, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, endpoint_id, started_at, completed_at, status,
			files_processed, files_added, files_updated, files_skipped,
			error_message, duration_ms
		FROM sync_logs WHERE endpoint_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, endpointID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.SyncLog //nolint:prealloc // size unknown from query
	for rows.Next() {
		var log domain.SyncLog
		var status string
		var completedAt sql.NullTime
		var durationMs int64

		if err := rows.Scan(&log.ID, &log.EndpointID, &log.StartedAt, &completedAt,
			&status, &log.FilesProcessed, &log.FilesAdded, &log.FilesUpdated,
			&log.FilesSkipped, &log.ErrorMessage, &durationMs); err != nil {
			return nil, fmt.Errorf("scanning sync log: %w", err)
		}

		log.Status = domain.SyncStatus(status)
		log.CompletedAt = timeOf(completedAt)
		log.Duration = time.Duration(durationMs) * time.Millisecond
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync logs: %w", err)
	}

	return logs, nil
}

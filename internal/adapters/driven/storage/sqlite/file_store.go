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

// fileStore implements driven.FileStore.
type fileStore struct {
	store *Store
}

var _ driven.FileStore = (*fileStore)(nil)

const fileColumns = `id, endpoint_id, external_id, name, path, link, size, mime_type,
	external_created_at, external_updated_at, first_seen_at, last_seen_at`

// Upsert stores the metadata under (endpointID, ExternalID). For
// existing records the returned record carries the vendor timestamps
// from before this upsert so callers can classify updates. The read
// and write happen in one transaction.
func (s *fileStore) Upsert(ctx context.Context, meta domain.FileMetadata, endpointID string) (*domain.FileRecord, bool, error) {
	if meta.ExternalID == "" {
		return nil, false, fmt.Errorf("file external id required: %w", domain.ErrInvalidInput)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()

	row := tx.QueryRowContext(ctx, `
		SELECT `+fileColumns+` FROM files WHERE endpoint_id = ? AND external_id = ?
	`, endpointID, meta.ExternalID)

	existing, err := scanFileRecord(row)
	switch {
	case err == nil:
		// Update in place, keeping the pre-update record for the caller.
		_, err = tx.ExecContext(ctx, `
			UPDATE files SET
				name = ?, path = ?, link = ?, size = ?, mime_type = ?,
				external_created_at = ?, external_updated_at = ?, last_seen_at = ?
			WHERE endpoint_id = ? AND external_id = ?
		`, meta.Name, meta.Path, meta.Link, meta.Size, meta.MIMEType,
			nullTime(meta.ExternalCreatedAt), nullTime(meta.ExternalUpdatedAt), now,
			endpointID, meta.ExternalID)
		if err != nil {
			return nil, false, fmt.Errorf("updating file: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("committing transaction: %w", err)
		}
		existing.LastSeenAt = now
		return existing, false, nil

	case err == domain.ErrNotFound:
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
		_, err = tx.ExecContext(ctx, `
			INSERT INTO files (`+fileColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, record.ID, record.EndpointID, record.ExternalID, record.Name, record.Path,
			record.Link, record.Size, record.MIMEType,
			nullTime(record.ExternalCreatedAt), nullTime(record.ExternalUpdatedAt),
			record.FirstSeenAt, record.LastSeenAt)
		if err != nil {
			return nil, false, fmt.Errorf("inserting file: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("committing transaction: %w", err)
		}
		return &record, true, nil

	default:
		return nil, false, err
	}
}

// Get retrieves a record by endpoint and vendor-native ID.
func (s *fileStore) Get(ctx context.Context, endpointID, externalID string) (*domain.FileRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+fileColumns+` FROM files WHERE endpoint_id = ? AND external_id = ?
	`, endpointID, externalID)
	return scanFileRecord(row)
}

// CountByEndpoint returns the number of records for an endpoint.
func (s *fileStore) CountByEndpoint(ctx context.Context, endpointID string) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM files WHERE endpoint_id = ?", endpointID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting files: %w", err)
	}
	return count, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanFileRecord scans a single file record.
func scanFileRecord(row rowScanner) (*domain.FileRecord, error) {
	var record domain.FileRecord
	var externalCreatedAt, externalUpdatedAt sql.NullTime

	if err := row.Scan(&record.ID, &record.EndpointID, &record.ExternalID,
		&record.Name, &record.Path, &record.Link, &record.Size, &record.MIMEType,
		&externalCreatedAt, &externalUpdatedAt,
		&record.FirstSeenAt, &record.LastSeenAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning file record: %w", err)
	}

	record.ExternalCreatedAt = timeOf(externalCreatedAt)
	record.ExternalUpdatedAt = timeOf(externalUpdatedAt)
	return &record, nil
}

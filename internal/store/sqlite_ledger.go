package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AppendSyncLog records a completed reconciliation batch or purge.
func (s *SQLiteStore) AppendSyncLog(ctx context.Context, entry SyncLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_log (id, collection, operation, record_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Collection, entry.Operation, entry.RecordCount,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append sync log: %w", err)
	}
	return nil
}

// SyncLogAfter returns entries with id > afterID, oldest first, up to limit.
// ULID ids sort lexicographically in creation order, so id paging is time
// paging.
func (s *SQLiteStore) SyncLogAfter(ctx context.Context, afterID string, limit int) ([]SyncLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, operation, record_count, created_at
		FROM sync_log
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync log: %w", err)
	}
	defer rows.Close()

	entries := make([]SyncLogEntry, 0)
	for rows.Next() {
		var e SyncLogEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Collection, &e.Operation, &e.RecordCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan sync log entry: %w", err)
		}
		var parseErr error
		if e.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdAt); parseErr != nil {
			slog.Warn("sync_log: failed to parse created_at", "value", createdAt, "error", parseErr)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PruneSyncLog deletes entries created before the cutoff and returns how
// many were removed.
func (s *SQLiteStore) PruneSyncLog(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_log WHERE created_at < ?`,
		before.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune sync log: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return removed, nil
}

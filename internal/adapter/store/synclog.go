package store

import (
	"context"
	"fmt"
	"time"

	"crewdesk/internal/domain"
)

// Append writes one sync history row.
func (s *Store) Append(ctx context.Context, entry domain.SyncEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_log (session_ticket, operation, direction, status, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.SessionTicket, entry.Operation, string(entry.Direction),
		string(entry.Status), truncate(entry.Detail, 4000),
		entry.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSyncLogWrite, err)
	}
	return nil
}

// Recent returns the newest limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.SyncEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_ticket, operation, direction, status, detail, created_at
		FROM sync_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	var entries []domain.SyncEntry
	for rows.Next() {
		var e domain.SyncEntry
		var direction, status, createdAt string
		if err := rows.Scan(&e.ID, &e.SessionTicket, &e.Operation, &direction, &status, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan log: %v", domain.ErrStore, err)
		}
		e.Direction = domain.SyncDirection(direction)
		e.Status = domain.SyncStatus(status)
		e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: recent rows: %v", domain.ErrStore, err)
	}
	return entries, nil
}

// Prune deletes entries older than olderThan and returns the count removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM sync_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: prune: %v", domain.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", domain.ErrStore, err)
	}
	return int(n), nil
}

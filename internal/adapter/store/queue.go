package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"crewdesk/internal/domain"
)

const timeLayout = time.RFC3339Nano

// Enqueue inserts a new pending item and returns its generated id.
func (s *Store) Enqueue(ctx context.Context, item domain.QueueItem) (string, error) {
	now := s.now()
	if item.ID == "" {
		item.ID = newID(now)
	}
	if item.Status == "" {
		item.Status = domain.ItemPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_queue (id, item_type, reference_id, status, detail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, string(item.Type), item.ReferenceID, string(item.Status), item.Detail,
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("%w: enqueue: %v", domain.ErrStore, err)
	}
	return item.ID, nil
}

// PeekNext returns up to limit pending items in FIFO order without mutating them.
func (s *Store) PeekNext(ctx context.Context, limit int) ([]domain.QueueItem, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_type, reference_id, status, detail, created_at, updated_at
		FROM sync_queue WHERE status = ? ORDER BY created_at, id LIMIT ?`,
		string(domain.ItemPending), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: peek: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	var items []domain.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: peek rows: %v", domain.ErrStore, err)
	}
	return items, nil
}

// MarkProcessing transitions a pending item to processing.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id, domain.ItemPending, domain.ItemProcessing, "")
}

// MarkCompleted transitions a processing item to completed, storing an
// excerpt of the response payload as detail.
func (s *Store) MarkCompleted(ctx context.Context, id, payload string) error {
	return s.transition(ctx, id, domain.ItemProcessing, domain.ItemCompleted, truncate(payload, 2000))
}

// MarkFailed transitions a processing item to failed with the agent's message.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	return s.transition(ctx, id, domain.ItemProcessing, domain.ItemFailed, truncate(message, 2000))
}

// transition updates status guarded on the current status, so a stale or
// repeated call is reported as ErrQueueItemNotFound instead of clobbering.
func (s *Store) transition(ctx context.Context, id string, from, to domain.ItemStatus, detail string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, detail = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), detail, s.now().Format(timeLayout), id, string(from))
	if err != nil {
		return fmt.Errorf("%w: transition %s->%s: %v", domain.ErrStore, from, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", domain.ErrStore, err)
	}
	if n == 0 {
		return domain.NewDomainError("store.transition", domain.ErrQueueItemNotFound,
			fmt.Sprintf("item %s not in %s", id, from))
	}
	return nil
}

// HasPending reports whether any pending items remain.
func (s *Store) HasPending(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sync_queue WHERE status = ?`,
		string(domain.ItemPending)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: has pending: %v", domain.ErrStore, err)
	}
	return n > 0, nil
}

// ReclaimStale returns items stuck in processing longer than olderThan to
// pending. Covers agents that received a dispatch and never called back.
func (s *Store) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?`,
		string(domain.ItemPending), s.now().Format(timeLayout),
		string(domain.ItemProcessing), cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: reclaim: %v", domain.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", domain.ErrStore, err)
	}
	return int(n), nil
}

// GetItem returns a single queue item by id.
func (s *Store) GetItem(ctx context.Context, id string) (*domain.QueueItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, item_type, reference_id, status, detail, created_at, updated_at
		FROM sync_queue WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrQueueItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// RecordRef stores the QuickBooks identifier extracted from a success
// response. Re-recording the same item overwrites the previous value.
func (s *Store) RecordRef(ctx context.Context, ref domain.ExternalRef) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO external_refs (item_id, ref_type, ref_value, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET ref_type = excluded.ref_type, ref_value = excluded.ref_value`,
		ref.ItemID, string(ref.Type), ref.Value, s.now().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("%w: record ref: %v", domain.ErrStore, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.QueueItem, error) {
	var item domain.QueueItem
	var itemType, status, createdAt, updatedAt string
	if err := row.Scan(&item.ID, &itemType, &item.ReferenceID, &status, &item.Detail, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return item, err
		}
		return item, fmt.Errorf("%w: scan item: %v", domain.ErrStore, err)
	}
	item.Type = domain.ItemType(itemType)
	item.Status = domain.ItemStatus(status)
	item.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	item.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return item, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

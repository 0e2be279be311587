package domain

import (
	"context"
	"time"
)

// SyncDirection records which way data moved for a sync log entry.
type SyncDirection string

const (
	DirOutbound SyncDirection = "outbound" // server -> QuickBooks
	DirInbound  SyncDirection = "inbound"  // QuickBooks -> server
)

// SyncStatus classifies the outcome recorded in a sync log entry.
type SyncStatus string

const (
	SyncOK     SyncStatus = "ok"
	SyncFailed SyncStatus = "failed"
)

// SyncEntry is one row of the operator-facing sync history.
type SyncEntry struct {
	ID            int64
	SessionTicket string
	Operation     string // protocol method or item type, e.g. "authenticate", "time_entry"
	Direction     SyncDirection
	Status        SyncStatus
	Detail        string
	CreatedAt     time.Time
}

// SyncLog appends and queries sync history. Append failures must never break
// the protocol loop; callers log and continue.
type SyncLog interface {
	Append(ctx context.Context, entry SyncEntry) error
	Recent(ctx context.Context, limit int) ([]SyncEntry, error)
	Prune(ctx context.Context, olderThan time.Duration) (int, error)
}

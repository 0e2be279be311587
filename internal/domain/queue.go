package domain

import (
	"context"
	"time"
)

// ItemStatus is the lifecycle state of a queue item.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemProcessing ItemStatus = "processing"
	ItemCompleted  ItemStatus = "completed"
	ItemFailed     ItemStatus = "failed"
)

// ItemType identifies which QuickBooks object a queue item synchronizes.
type ItemType string

const (
	ItemTimeEntry ItemType = "time_entry"
	ItemEmployee  ItemType = "employee"
	ItemCustomer  ItemType = "customer"
	ItemInvoice   ItemType = "invoice"
)

// QueueItem is one unit of pending synchronization work. The protocol core
// references items by ID only; the queue owns their data and lifecycle.
type QueueItem struct {
	ID          string
	Type        ItemType
	ReferenceID string // back-office record the item was generated from
	Status      ItemStatus
	Detail      string // error message or response payload excerpt
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkQueue exposes the sync queue. The protocol core's contract is narrow:
// peek-and-mark-processing, then exactly one of MarkCompleted or MarkFailed.
// ReclaimStale returns items abandoned in processing to pending; it belongs
// to the queue owner, not the dispatcher.
type WorkQueue interface {
	PeekNext(ctx context.Context, limit int) ([]QueueItem, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, payload string) error
	MarkFailed(ctx context.Context, id, message string) error
	HasPending(ctx context.Context) (bool, error)
	Enqueue(ctx context.Context, item QueueItem) (string, error)
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// ExternalRefRecorder receives secondary identifiers (QuickBooks TxnID or
// ListID) extracted from successful responses. Recording is best-effort.
type ExternalRefRecorder interface {
	RecordRef(ctx context.Context, ref ExternalRef) error
}

// RefType names the kind of QuickBooks identifier an ExternalRef carries.
type RefType string

const (
	RefTxnID  RefType = "TxnID"
	RefListID RefType = "ListID"
)

// ExternalRef ties a completed queue item to the identifier QuickBooks
// assigned to the object it created or updated.
type ExternalRef struct {
	ItemID string
	Type   RefType
	Value  string
}

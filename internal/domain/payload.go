package domain

import "context"

// PayloadBuilder generates the outbound qbXML for a queue item, keyed by the
// item's declared type and reference. An unknown type yields
// ErrPayloadUnknownType so the dispatcher can fail the item rather than
// leave it stuck in processing.
type PayloadBuilder interface {
	Build(ctx context.Context, item QueueItem) (string, error)
}

// DirectoryQueryBuilder generates the one-shot employee directory pull used
// when the queue is empty on a session's first work slot.
type DirectoryQueryBuilder interface {
	Build(ctx context.Context) (string, error)
}

// DirectoryEntry is one id + display name pair parsed from a directory
// query response. Parsed for logging only; no queue mutation results.
type DirectoryEntry struct {
	ListID string
	Name   string
}

// ResponseInterpreter classifies agent-reported outcomes and extracts the
// secondary identifiers success responses carry.
type ResponseInterpreter interface {
	Succeeded(hresult string) bool
	ExtractRef(itemType ItemType, payload string) (ExternalRef, bool)
	ParseDirectory(payload string) []DirectoryEntry
}

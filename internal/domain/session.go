package domain

import "time"

// WorkKind discriminates the single outstanding unit of work a session may hold.
type WorkKind string

const (
	WorkNone           WorkKind = "none"
	WorkDirectoryQuery WorkKind = "directory_query"
	WorkQueueItem      WorkKind = "queue_item"
)

// DispatchedWork is the tagged value tracking what, if anything, has been
// handed to the Web Connector and is awaiting its response. ItemID is set
// only when Kind == WorkQueueItem.
type DispatchedWork struct {
	Kind   WorkKind
	ItemID string
}

// None reports whether no work is outstanding.
func (w DispatchedWork) None() bool {
	return w.Kind == WorkNone || w.Kind == ""
}

// Session is the per-ticket state surviving across Web Connector calls.
// A session holds at most one non-None DispatchedWork at any time; new work
// may be dispatched only while Work is None. RequestCount never decreases.
type Session struct {
	Ticket         string
	Username       string
	CompanyFile    string // recorded on first dispatch carrying a hint, immutable after
	RequestCount   int
	Work           DispatchedWork
	CreatedAt      time.Time
	LastActivityAt time.Time
}

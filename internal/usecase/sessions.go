package usecase

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"crewdesk/internal/domain"
)

// sessionEntry pairs a session with its own mutex so per-ticket mutation is
// serialized even if the agent retries a call after a timeout.
type sessionEntry struct {
	mu   sync.Mutex
	sess *domain.Session
}

// SessionRegistry is a concurrency-safe store of Web Connector sessions
// keyed by ticket, with idle-based eviction driven by Sweep.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	nowFn    func() time.Time
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*sessionEntry),
		nowFn:    time.Now,
	}
}

func generateTicket(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Create issues a fresh session for an authenticated username and returns
// its ticket.
func (r *SessionRegistry) Create(username string) *domain.Session {
	now := r.nowFn()
	sess := &domain.Session{
		Ticket:         generateTicket(now),
		Username:       username,
		Work:           domain.DispatchedWork{Kind: domain.WorkNone},
		CreatedAt:      now,
		LastActivityAt: now,
	}

	r.mu.Lock()
	// Tickets must be unique among live sessions; regenerate on the
	// (vanishingly rare) collision.
	for _, taken := r.sessions[sess.Ticket]; taken; _, taken = r.sessions[sess.Ticket] {
		sess.Ticket = generateTicket(r.nowFn())
	}
	r.sessions[sess.Ticket] = &sessionEntry{sess: sess}
	r.mu.Unlock()
	return sess
}

// With runs fn with exclusive access to the session for ticket. The
// session's LastActivityAt is refreshed before fn runs, so a sweep cannot
// evict a session that is mid-handler. Returns domain.ErrSessionNotFound
// for unknown tickets.
func (r *SessionRegistry) With(ticket string, fn func(*domain.Session) error) error {
	r.mu.RLock()
	entry, ok := r.sessions[ticket]
	r.mu.RUnlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// Re-check after acquiring the entry lock: a sweep or close may have
	// removed the session between the map read and here.
	r.mu.RLock()
	_, live := r.sessions[ticket]
	r.mu.RUnlock()
	if !live {
		return domain.ErrSessionNotFound
	}

	entry.sess.LastActivityAt = r.nowFn()
	return fn(entry.sess)
}

// Get returns a copy of the session for ticket.
func (r *SessionRegistry) Get(ticket string) (domain.Session, bool) {
	r.mu.RLock()
	entry, ok := r.sessions[ticket]
	r.mu.RUnlock()
	if !ok {
		return domain.Session{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return *entry.sess, true
}

// Delete removes the session for ticket, reporting whether one existed.
func (r *SessionRegistry) Delete(ticket string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[ticket]; !ok {
		return false
	}
	delete(r.sessions, ticket)
	return true
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle longer than maxIdle and returns the count
// removed. Sessions whose entry lock is held (a handler is running) are
// skipped regardless of their timestamps.
func (r *SessionRegistry) Sweep(maxIdle time.Duration) int {
	cutoff := r.nowFn().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for ticket, entry := range r.sessions {
		if !entry.mu.TryLock() {
			continue
		}
		idle := entry.sess.LastActivityAt.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			delete(r.sessions, ticket)
			evicted++
		}
	}
	return evicted
}

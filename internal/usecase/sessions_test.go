package usecase

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewdesk/internal/domain"
)

func TestSessionRegistryCreateAndGet(t *testing.T) {
	r := NewSessionRegistry()

	sess := r.Create("svc")
	require.NotEmpty(t, sess.Ticket)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get(sess.Ticket)
	require.True(t, ok)
	assert.Equal(t, "svc", got.Username)
	assert.True(t, got.Work.None())
}

func TestSessionRegistryWithUnknownTicket(t *testing.T) {
	r := NewSessionRegistry()
	err := r.With("missing", func(*domain.Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRegistryWithMutatesUnderLock(t *testing.T) {
	r := NewSessionRegistry()
	sess := r.Create("svc")

	err := r.With(sess.Ticket, func(s *domain.Session) error {
		s.RequestCount++
		s.Work = domain.DispatchedWork{Kind: domain.WorkQueueItem, ItemID: "x"}
		return nil
	})
	require.NoError(t, err)

	got, _ := r.Get(sess.Ticket)
	assert.Equal(t, 1, got.RequestCount)
	assert.Equal(t, "x", got.Work.ItemID)
}

func TestSessionRegistryDelete(t *testing.T) {
	r := NewSessionRegistry()
	sess := r.Create("svc")

	assert.True(t, r.Delete(sess.Ticket))
	assert.False(t, r.Delete(sess.Ticket))
	assert.Equal(t, 0, r.Len())
}

func TestSessionRegistrySweepEvictsIdleOnly(t *testing.T) {
	r := NewSessionRegistry()
	now := time.Now()
	r.nowFn = func() time.Time { return now }

	stale := r.Create("old")
	now = now.Add(45 * time.Minute)
	fresh := r.Create("new")

	evicted := r.Sweep(30 * time.Minute)
	assert.Equal(t, 1, evicted)

	_, ok := r.Get(stale.Ticket)
	assert.False(t, ok)
	_, ok = r.Get(fresh.Ticket)
	assert.True(t, ok)
}

func TestSessionRegistrySweepSkipsInFlight(t *testing.T) {
	r := NewSessionRegistry()
	now := time.Now()
	r.nowFn = func() time.Time { return now }

	sess := r.Create("svc")
	now = now.Add(time.Hour)

	inHandler := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- r.With(sess.Ticket, func(*domain.Session) error {
			close(inHandler)
			<-release
			return nil
		})
	}()

	<-inHandler
	// The handler refreshed LastActivityAt and holds the entry lock, so a
	// sweep must not evict it mid-flight.
	assert.Equal(t, 0, r.Sweep(30*time.Minute))
	close(release)
	require.NoError(t, <-done)

	_, ok := r.Get(sess.Ticket)
	assert.True(t, ok)
}

func TestSessionRegistryConcurrentAccess(t *testing.T) {
	r := NewSessionRegistry()

	var wg sync.WaitGroup
	tickets := make([]string, 50)
	for i := 0; i < 50; i++ {
		tickets[i] = r.Create(fmt.Sprintf("user-%d", i)).Ticket
	}

	for i := 0; i < 50; i++ {
		wg.Add(2)
		ticket := tickets[i]
		go func() {
			defer wg.Done()
			_ = r.With(ticket, func(s *domain.Session) error {
				s.RequestCount++
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			r.Get(ticket)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
	for _, ticket := range tickets {
		sess, ok := r.Get(ticket)
		require.True(t, ok)
		assert.Equal(t, 1, sess.RequestCount)
	}
}

func TestTicketsAreUnique(t *testing.T) {
	r := NewSessionRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ticket := r.Create("svc").Ticket
		require.False(t, seen[ticket], "duplicate ticket %s", ticket)
		seen[ticket] = true
	}
}

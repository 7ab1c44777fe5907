package payment

import (
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

const (
	DefaultTrackerTTL = time.Hour
	trackerCleanup    = time.Minute
)

type trackedSession struct {
	provider Provider
	draftID  string
	session  *Session
	touched  time.Time
}

// Tracker keeps one payment Session per browsing session and draft. A newer draft, or a
// different provider for an unpaid draft, supersedes the tracked session.
type Tracker struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*trackedSession

	stopCleanup chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

func NewTracker(ttl time.Duration) *Tracker {
	return newTracker(ttl, time.Now, trackerCleanup)
}

func newTracker(ttl time.Duration, now func() time.Time, every time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTrackerTTL
	}
	t := &Tracker{
		ttl:         ttl,
		now:         now,
		sessions:    make(map[string]*trackedSession),
		stopCleanup: make(chan struct{}),
	}
	t.wg.Add(1)
	go t.cleanupLoop(every)
	return t
}

func (t *Tracker) cleanupLoop(every time.Duration) {
	defer t.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.evictIdle()
		case <-t.stopCleanup:
			return
		}
	}
}

func (t *Tracker) evictIdle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.ttl)
	for id, ts := range t.sessions {
		if ts.touched.Before(cutoff) && ts.session.State() != StateProcessing {
			delete(t.sessions, id)
		}
	}
}

// Acquire returns the tracked session for (sessionID, draft.ID, adapter), creating it with
// newSession when none matches.
func (t *Tracker) Acquire(sessionID string, draft domain.OrderDraft, adapter Adapter, newSession func() *Session) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ts, ok := t.sessions[sessionID]; ok && ts.draftID == draft.ID {
		state := ts.session.State()
		if ts.provider == adapter.Provider() || state.IsTerminal() || state == StateProcessing {
			ts.touched = t.now()
			return ts.session
		}
	}

	s := newSession()
	t.sessions[sessionID] = &trackedSession{
		provider: adapter.Provider(),
		draftID:  draft.ID,
		session:  s,
		touched:  t.now(),
	}
	return s
}

// Lookup returns the tracked session if it belongs to draftID.
func (t *Tracker) Lookup(sessionID, draftID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.sessions[sessionID]
	if !ok || ts.draftID != draftID {
		return nil, false
	}
	ts.touched = t.now()
	return ts.session, true
}

// Latest returns the tracked session regardless of draft.
func (t *Tracker) Latest(sessionID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return ts.session, true
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		close(t.stopCleanup)
		t.wg.Wait()
	})
}

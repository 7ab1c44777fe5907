package storage

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// CleanupInterval is how often the memory store drops expired entries.
const CleanupInterval = 30 * time.Second

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry // sessionID:key -> entry
	now     func() time.Time
	closed  bool

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewMemoryStore() *MemoryStore {
	return newMemoryStore(time.Now, CleanupInterval)
}

func newMemoryStore(now func() time.Time, cleanupEvery time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries:     make(map[string]memoryEntry),
		now:         now,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop(cleanupEvery)

	return s
}

func (s *MemoryStore) cleanupLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireEntries()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) expireEntries() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
		}
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	e, ok := s.entries[entryKey(sessionID, key)]
	if !ok || e.expired(s.now()) {
		return nil, ErrNotFound
	}
	return cloneBytes(e.value), nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	e := memoryEntry{value: cloneBytes(value)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[entryKey(sessionID, key)] = e
	return nil
}

func (s *MemoryStore) Take(ctx context.Context, sessionID, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	k := entryKey(sessionID, key)
	e, ok := s.entries[k]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.entries, k)
	if e.expired(s.now()) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	for _, key := range keys {
		delete(s.entries, entryKey(sessionID, key))
	}
	return nil
}

func (s *MemoryStore) DeleteIfMatch(ctx context.Context, sessionID, guardKey string, guard []byte, keys ...string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	gk := entryKey(sessionID, guardKey)
	e, ok := s.entries[gk]
	if !ok || e.expired(s.now()) || !bytes.Equal(e.value, guard) {
		return false, nil
	}
	delete(s.entries, gk)
	for _, key := range keys {
		delete(s.entries, entryKey(sessionID, key))
	}
	return true, nil
}

// Close stops the cleanup goroutine. Further calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func entryKey(sessionID, key string) string {
	return sessionID + ":" + key
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestMemoryStore(t *testing.T) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := newMemoryStore(clock.Now, time.Hour)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestMemoryStore_SetGet(t *testing.T) {
	s, _ := newTestMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", "cart", []byte(`[1]`), 0))

	got, err := s.Get(ctx, "s1", "cart")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1]`), got)

	_, err = s.Get(ctx, "s2", "cart")
	assert.ErrorIs(t, err, ErrNotFound, "sessions must not share slots")
}

func TestMemoryStore_TTLExpires(t *testing.T) {
	s, clock := newTestMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", "order_draft", []byte(`{}`), time.Minute))
	clock.Advance(59 * time.Second)
	_, err := s.Get(ctx, "s1", "order_draft")
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = s.Get(ctx, "s1", "order_draft")
	assert.ErrorIs(t, err, ErrNotFound)

	s.expireEntries()
	assert.Equal(t, 0, s.len())
}

func TestMemoryStore_TakeConsumesOnce(t *testing.T) {
	s, _ := newTestMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "s1", "completed_order", []byte(`{"a":1}`), time.Minute))

	got, err := s.Take(ctx, "s1", "completed_order")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)

	_, err = s.Take(ctx, "s1", "completed_order")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteMany(t *testing.T) {
	s, _ := newTestMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "s1", "cart", []byte(`[]`), 0))
	require.NoError(t, s.Set(ctx, "s1", "order_draft", []byte(`{}`), time.Minute))
	require.NoError(t, s.Set(ctx, "s1", "wishlist", []byte(`[]`), 0))

	require.NoError(t, s.Delete(ctx, "s1", "cart", "order_draft", "missing"))

	_, err := s.Get(ctx, "s1", "cart")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "s1", "order_draft")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "s1", "wishlist")
	assert.NoError(t, err)
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	s, _ := newTestMemoryStore(t)
	ctx := context.Background()
	buf := []byte(`abc`)
	require.NoError(t, s.Set(ctx, "s1", "k", buf, 0))
	buf[0] = 'z'

	got, err := s.Get(ctx, "s1", "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), "s1", "cart")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryStore_ContextCancelled(t *testing.T) {
	s, _ := newTestMemoryStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Set(ctx, "s1", "cart", []byte(`[]`), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_DeleteIfMatch(t *testing.T) {
	s, clock := newTestMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "sess1", "order_draft", []byte(`{"id":"b"}`), time.Minute))
	require.NoError(t, s.Set(ctx, "sess1", "cart", []byte(`[1]`), 0))

	deleted, err := s.DeleteIfMatch(ctx, "sess1", "order_draft", []byte(`{"id":"a"}`), "cart")
	require.NoError(t, err)
	assert.False(t, deleted)
	_, err = s.Get(ctx, "sess1", "cart")
	assert.NoError(t, err, "cart survives a guard mismatch")

	deleted, err = s.DeleteIfMatch(ctx, "sess1", "order_draft", []byte(`{"id":"b"}`), "cart")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 0, s.len())

	require.NoError(t, s.Set(ctx, "sess1", "order_draft", []byte(`{"id":"c"}`), time.Minute))
	clock.Advance(2 * time.Minute)
	deleted, err = s.DeleteIfMatch(ctx, "sess1", "order_draft", []byte(`{"id":"c"}`))
	require.NoError(t, err)
	assert.False(t, deleted, "expired guard never matches")
}

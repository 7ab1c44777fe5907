package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Common errors returned by stores
var (
	ErrNotFound = errors.New("key not found")
	ErrClosed   = errors.New("store is closed")
)

// Store holds per-session values under fixed keys. A ttl of zero means the value is durable;
// a positive ttl makes it transient.
// Values are always replaced whole, never patched.
type Store interface {
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	Set(ctx context.Context, sessionID, key string, value []byte, ttl time.Duration) error
	// Take returns the value and deletes it in one step.
	Take(ctx context.Context, sessionID, key string) ([]byte, error)
	// Delete removes all keys in one backend operation. Missing keys are not an error.
	Delete(ctx context.Context, sessionID string, keys ...string) error
	// DeleteIfMatch removes guardKey and keys only while guardKey still holds guard.
	// It reports whether anything was deleted.
	DeleteIfMatch(ctx context.Context, sessionID, guardKey string, guard []byte, keys ...string) (bool, error)
	Close() error
}

// LoadStatus distinguishes an intentionally empty slot from one that failed to load.
type LoadStatus int

const (
	StatusLoaded LoadStatus = iota
	StatusEmpty
	StatusCorrupt
	StatusFailed
)

func (s LoadStatus) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusEmpty:
		return "empty"
	case StatusCorrupt:
		return "corrupt"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadJSON reads and decodes a slot. On anything but StatusLoaded the zero value is returned,
// along with the underlying error for corrupt and failed slots.
func LoadJSON[T any](ctx context.Context, s Store, sessionID, key string) (T, LoadStatus, error) {
	var v T
	data, err := s.Get(ctx, sessionID, key)
	if errors.Is(err, ErrNotFound) {
		return v, StatusEmpty, nil
	}
	if err != nil {
		return v, StatusFailed, err
	}
	return decode[T](data)
}

// TakeJSON is LoadJSON with single consumption.
func TakeJSON[T any](ctx context.Context, s Store, sessionID, key string) (T, LoadStatus, error) {
	var v T
	data, err := s.Take(ctx, sessionID, key)
	if errors.Is(err, ErrNotFound) {
		return v, StatusEmpty, nil
	}
	if err != nil {
		return v, StatusFailed, err
	}
	return decode[T](data)
}

func decode[T any](data []byte) (T, LoadStatus, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, StatusCorrupt, fmt.Errorf("unmarshal slot failed: %w", err)
	}
	return v, StatusLoaded, nil
}

func SaveJSON(ctx context.Context, s Store, sessionID, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal slot failed: %w", err)
	}
	return s.Set(ctx, sessionID, key, data, ttl)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "storefront"

type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKey(sessionID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStore) Set(ctx context.Context, sessionID, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, redisKey(sessionID, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Take(ctx context.Context, sessionID, key string) ([]byte, error) {
	data, err := r.client.GetDel(ctx, redisKey(sessionID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis getdel failed: %w", err)
	}
	return data, nil
}

// Delete issues a single DEL, which removes all keys atomically.
func (r *RedisStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = redisKey(sessionID, k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// deleteIfMatch compares KEYS[1] with ARGV[1] and deletes every key on a match.
var deleteIfMatch = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("DEL", unpack(KEYS))
	return 1
end
return 0
`)

func (r *RedisStore) DeleteIfMatch(ctx context.Context, sessionID, guardKey string, guard []byte, keys ...string) (bool, error) {
	full := make([]string, 0, len(keys)+1)
	full = append(full, redisKey(sessionID, guardKey))
	for _, k := range keys {
		full = append(full, redisKey(sessionID, k))
	}
	n, err := deleteIfMatch.Run(ctx, r.client, full, guard).Int()
	if err != nil {
		return false, fmt.Errorf("redis delete-if-match failed: %w", err)
	}
	return n == 1, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func redisKey(sessionID, key string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, sessionID, key)
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type ProductCache interface {
	Get(ctx context.Context, id int64) (domain.Product, error)
	Set(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id int64) error
}

type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
	jitter  time.Duration
}

func NewRedisCache(client redis.UniversalClient, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 15 * time.Minute
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
		jitter:  5 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, id int64) (domain.Product, error) {
	data, err := r.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Product{}, ErrCacheMiss
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("redis get failed: %w", err)
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Product{}, fmt.Errorf("unmarshal product failed: %w", err)
	}
	return p, nil
}

// Set stores p for baseTTL plus up to jitter so entries written together do not expire together.
func (r *RedisCache) Set(ctx context.Context, p domain.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	ttl := r.baseTTL
	if r.jitter > 0 {
		ttl += time.Duration(rand.Int63n(int64(r.jitter)))
	}
	if err := r.client.Set(ctx, cacheKey(p.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, id int64) error {
	if err := r.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

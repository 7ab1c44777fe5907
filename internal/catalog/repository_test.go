package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	products []domain.Product
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (s *stubSource) Get(ctx context.Context, id int64) (domain.Product, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return domain.Product{}, s.err
	}
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, ErrProductNotFound
}

func (s *stubSource) List(ctx context.Context, q Query) (Page, error) {
	s.calls.Add(1)
	if s.err != nil {
		return Page{}, s.err
	}
	return Apply(s.products, q), nil
}

func (s *stubSource) Categories(ctx context.Context, lang string) ([]string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return categoryNames(s.products, lang), nil
}

func product(id int64, name string) domain.Product {
	return domain.Product{ID: id, Name: domain.LocalizedText{"en": name}, Category: domain.LocalizedText{"en": "Toys"}, Price: decimal.NewFromInt(10 * id), InStock: true}
}

func TestRepository_RemoteFirst(t *testing.T) {
	remote := &stubSource{products: []domain.Product{product(1, "remote widget")}}
	local := &stubSource{products: []domain.Product{product(1, "local widget")}}
	repo := NewRepository(remote, local, PolicyRemoteFirst, logger.Discard())

	p, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "remote widget", p.Name.Get("en"))
	assert.Equal(t, int32(0), local.calls.Load())
}

func TestRepository_FallsBackOnRemoteFailure(t *testing.T) {
	remote := &stubSource{err: errors.New("connection refused")}
	local := &stubSource{products: []domain.Product{product(1, "local widget"), product(2, "local ball")}}
	repo := NewRepository(remote, local, PolicyRemoteFirst, logger.Discard())

	p, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "local widget", p.Name.Get("en"))

	page, err := repo.List(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(page.Products))

	cats, err := repo.Categories(context.Background(), "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"Toys"}, cats)
}

func TestRepository_RemoteNotFoundIsFinal(t *testing.T) {
	remote := &stubSource{}
	local := &stubSource{products: []domain.Product{product(1, "local widget")}}
	repo := NewRepository(remote, local, PolicyRemoteFirst, logger.Discard())

	_, err := repo.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, int32(0), local.calls.Load())
}

func TestRepository_LocalOnly(t *testing.T) {
	remote := &stubSource{products: []domain.Product{product(1, "remote")}}
	local := &stubSource{products: []domain.Product{product(1, "local")}}
	repo := NewRepository(remote, local, PolicyLocalOnly, logger.Discard())

	p, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name.Get("en"))
	assert.Equal(t, int32(0), remote.calls.Load())

	repo = NewRepository(nil, local, PolicyRemoteFirst, logger.Discard())
	assert.Equal(t, PolicyLocalOnly, repo.Policy())
}

func TestRepository_ListRejectsInvalidQuery(t *testing.T) {
	repo := NewRepository(nil, &stubSource{}, PolicyLocalOnly, logger.Discard())

	_, err := repo.List(context.Background(), Query{Sort: "shuffle"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestRepository_SingleflightCollapsesLookups(t *testing.T) {
	local := &stubSource{products: []domain.Product{product(1, "widget")}, delay: 50 * time.Millisecond}
	repo := NewRepository(nil, local, PolicyLocalOnly, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Get(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Less(t, local.calls.Load(), int32(10))
}

func TestRepository_ReadThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	local := &stubSource{products: []domain.Product{product(1, "widget")}}
	repo := NewRepository(nil, local, PolicyLocalOnly, logger.Discard(), WithCache(cache))

	_, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, mr.Exists("product:1"))

	p, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "widget", p.Name.Get("en"))
	assert.Equal(t, int32(1), local.calls.Load())
}

func TestRepository_CacheErrorsDoNotFailLookups(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	mr.Close()

	local := &stubSource{products: []domain.Product{product(1, "widget")}}
	repo := NewRepository(nil, local, PolicyLocalOnly, logger.Discard(), WithCache(cache))

	p, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyRemoteFirst, p)

	p, err = ParsePolicy("local_only")
	require.NoError(t, err)
	assert.Equal(t, PolicyLocalOnly, p)

	_, err = ParsePolicy("remote_only")
	assert.Error(t, err)
}

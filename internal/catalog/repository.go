package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Policy selects which tiers serve reads.
type Policy string

const (
	// PolicyRemoteFirst reads the CMS and falls back to the bundled list on failure.
	PolicyRemoteFirst Policy = "remote_first"
	PolicyLocalOnly   Policy = "local_only"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyRemoteFirst, PolicyLocalOnly:
		return Policy(s), nil
	case "":
		return PolicyRemoteFirst, nil
	}
	return "", fmt.Errorf("unknown catalog policy %q", s)
}

// Repository is the two-tier catalog. It implements Source.
type Repository struct {
	remote Source
	local  Source
	policy Policy
	cache  ProductCache
	log    *slog.Logger
	sfg    singleflight.Group // collapses identical concurrent lookups
}

type RepositoryOption func(*Repository)

func WithCache(c ProductCache) RepositoryOption {
	return func(r *Repository) { r.cache = c }
}

// NewRepository builds the catalog. remote may be nil, which forces PolicyLocalOnly.
func NewRepository(remote, local Source, policy Policy, log *slog.Logger, opts ...RepositoryOption) *Repository {
	if remote == nil {
		policy = PolicyLocalOnly
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Repository{
		remote: remote,
		local:  local,
		policy: policy,
		log:    log.With(slog.String("component", "catalog")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) Policy() Policy {
	return r.policy
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Product, error) {
	v, err, _ := r.sfg.Do("get:"+strconv.FormatInt(id, 10), func() (interface{}, error) {
		if r.cache != nil {
			p, err := r.cache.Get(ctx, id)
			if err == nil {
				return p, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				r.log.WarnContext(ctx, "cache get error", slog.Int64("product_id", id), slog.Any("error", err))
			}
		}

		p, err := tiered(r, ctx, "get", func(s Source) (domain.Product, error) { return s.Get(ctx, id) })
		if err != nil {
			return nil, err
		}

		if r.cache != nil {
			setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			if err := r.cache.Set(setCtx, p); err != nil {
				r.log.WarnContext(ctx, "cache set error", slog.Int64("product_id", id), slog.Any("error", err))
			}
		}
		return p, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return v.(domain.Product), nil
}

func (r *Repository) List(ctx context.Context, q Query) (Page, error) {
	if err := q.Validate(); err != nil {
		return Page{}, err
	}
	q = q.Normalized()

	v, err, _ := r.sfg.Do(listKey(q), func() (interface{}, error) {
		return tiered(r, ctx, "list", func(s Source) (Page, error) { return s.List(ctx, q) })
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}

func (r *Repository) Categories(ctx context.Context, lang string) ([]string, error) {
	lang = domain.NormalizeLanguage(lang)
	v, err, _ := r.sfg.Do("categories:"+lang, func() (interface{}, error) {
		return tiered(r, ctx, "categories", func(s Source) ([]string, error) { return s.Categories(ctx, lang) })
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// tiered applies the precedence policy. A not-found answer from the remote tier is final.
func tiered[T any](r *Repository, ctx context.Context, op string, call func(Source) (T, error)) (T, error) {
	if r.policy == PolicyLocalOnly {
		return call(r.local)
	}

	v, err := call(r.remote)
	if err == nil || errors.Is(err, ErrProductNotFound) {
		return v, err
	}
	if ctx.Err() != nil {
		return v, ctx.Err()
	}

	r.log.WarnContext(ctx, "remote catalog failed, using bundled catalog",
		slog.String("op", op), slog.Any("error", err))
	return call(r.local)
}

func listKey(q Query) string {
	key := fmt.Sprintf("list:%s|%s|%s|%s|%t|%s|%d|%d", q.Category, q.Tag, q.Search, q.Lang, q.InStockOnly, q.Sort, q.Limit, q.Page)
	if q.MinPrice != nil {
		key += "|min=" + q.MinPrice.String()
	}
	if q.MaxPrice != nil {
		key += "|max=" + q.MaxPrice.String()
	}
	return key
}

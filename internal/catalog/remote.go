package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// envelope is the CMS read API response shape.
type envelope[T any] struct {
	Success    bool        `json:"success"`
	Data       T           `json:"data"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// RemoteSource reads products from the CMS read API.
type RemoteSource struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	breaker *circuitbreaker.Breaker[[]byte]
}

func NewRemoteSource(baseURL string, timeout time.Duration, log *slog.Logger) *RemoteSource {
	opts := circuitbreaker.DefaultOptions()
	opts.IsSuccessful = func(err error) bool { return errors.Is(err, ErrProductNotFound) }

	return &RemoteSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout: timeout,
		breaker: circuitbreaker.New[[]byte]("catalog-cms", opts, log),
	}
}

func (r *RemoteSource) Get(ctx context.Context, id int64) (domain.Product, error) {
	body, err := r.fetch(ctx, fmt.Sprintf("/products/%d", id), nil)
	if err != nil {
		return domain.Product{}, err
	}

	var env envelope[domain.Product]
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.Product{}, fmt.Errorf("decode product failed: %w", err)
	}
	if !env.Success {
		return domain.Product{}, fmt.Errorf("cms error: %s", env.Message)
	}
	return env.Data, nil
}

// maxRemotePages bounds the walk over CMS pages when filtering locally.
const maxRemotePages = 50

// List forwards the filters the CMS understands. Stock and price filters and non-default
// sorts are not understood by the CMS, so those queries read every matching page and
// paginate locally.
func (r *RemoteSource) List(ctx context.Context, q Query) (Page, error) {
	q = q.Normalized()

	params := url.Values{}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Tag != domain.TagNone {
		params.Set("tag", string(q.Tag))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}

	if !q.needsLocalPass() {
		params.Set("limit", strconv.Itoa(q.Limit))
		params.Set("page", strconv.Itoa(q.Page))
		env, err := r.listPage(ctx, params)
		if err != nil {
			return Page{}, err
		}
		page := Page{Products: env.Data}
		if page.Products == nil {
			page.Products = []domain.Product{}
		}
		if env.Pagination != nil {
			page.Pagination = *env.Pagination
		} else {
			page.Pagination = Pagination{Page: q.Page, Limit: q.Limit, Total: len(env.Data), TotalPages: 1}
		}
		return page, nil
	}

	matched := make([]domain.Product, 0)
	params.Set("limit", strconv.Itoa(MaxLimit))
	for n := 1; n <= maxRemotePages; n++ {
		params.Set("page", strconv.Itoa(n))
		env, err := r.listPage(ctx, params)
		if err != nil {
			return Page{}, err
		}
		for _, p := range env.Data {
			if q.InStockOnly && !p.InStock {
				continue
			}
			if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
				continue
			}
			if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
				continue
			}
			matched = append(matched, p)
		}
		last := len(env.Data) < MaxLimit
		if env.Pagination != nil {
			last = n >= env.Pagination.TotalPages
		}
		if last {
			break
		}
	}
	return paginate(matched, q), nil
}

// needsLocalPass reports whether q has parts the CMS cannot evaluate.
func (q Query) needsLocalPass() bool {
	return q.InStockOnly || q.MinPrice != nil || q.MaxPrice != nil || q.Sort != SortFeatured
}

func (r *RemoteSource) listPage(ctx context.Context, params url.Values) (envelope[[]domain.Product], error) {
	var env envelope[[]domain.Product]
	body, err := r.fetch(ctx, "/products", params)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("decode products failed: %w", err)
	}
	if !env.Success {
		return env, fmt.Errorf("cms error: %s", env.Message)
	}
	return env, nil
}

// Categories derives the category list from the product listing.
func (r *RemoteSource) Categories(ctx context.Context, lang string) ([]string, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(MaxLimit))
	body, err := r.fetch(ctx, "/products", params)
	if err != nil {
		return nil, err
	}

	var env envelope[[]domain.Product]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode products failed: %w", err)
	}
	return categoryNames(env.Data, domain.NormalizeLanguage(lang)), nil
}

func (r *RemoteSource) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return r.breaker.Execute(func() ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		u := r.baseURL + path
		if len(params) > 0 {
			u += "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("build request failed: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("cms request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("read cms response failed: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrProductNotFound
		case resp.StatusCode >= 300:
			return nil, fmt.Errorf("cms returned status %d", resp.StatusCode)
		}
		return body, nil
	})
}

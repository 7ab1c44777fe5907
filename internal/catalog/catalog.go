package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidQuery    = errors.New("invalid catalog query")
)

// Source is one tier of the catalog.
type Source interface {
	Get(ctx context.Context, id int64) (domain.Product, error)
	List(ctx context.Context, q Query) (Page, error)
	Categories(ctx context.Context, lang string) ([]string, error)
}

type Sort string

const (
	SortFeatured  Sort = "featured"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortNameAsc   Sort = "name_asc"
	SortNewest    Sort = "newest"
)

func (s Sort) Valid() bool {
	switch s {
	case SortFeatured, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNewest:
		return true
	}
	return false
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Query struct {
	Category    string
	Tag         domain.ProductTag
	Search      string
	Lang        string
	InStockOnly bool
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Sort        Sort
	Limit       int
	Page        int
}

// Normalized fills defaults and clamps paging.
func (q Query) Normalized() Query {
	if q.Sort == "" {
		q.Sort = SortFeatured
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Page < 1 {
		q.Page = 1
	}
	q.Lang = domain.NormalizeLanguage(q.Lang)
	return q
}

// Validate rejects unknown sort orders, unknown tags and inverted price ranges.
func (q Query) Validate() error {
	if q.Sort != "" && !q.Sort.Valid() {
		return fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, q.Sort)
	}
	if !q.Tag.Valid() {
		return fmt.Errorf("%w: unknown tag %q", ErrInvalidQuery, q.Tag)
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return fmt.Errorf("%w: min_price above max_price", ErrInvalidQuery)
	}
	return nil
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type Page struct {
	Products   []domain.Product `json:"products"`
	Pagination Pagination       `json:"pagination"`
}

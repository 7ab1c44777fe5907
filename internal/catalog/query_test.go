package catalog

import (
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fixtureProducts() []domain.Product {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Product{
		{ID: 3, Name: domain.LocalizedText{"en": "Mug", "de": "Tasse"}, Category: domain.LocalizedText{"en": "Home", "de": "Haushalt"}, Price: decimal.NewFromInt(120), InStock: true, Tag: domain.TagBestseller, CreatedAt: base.Add(48 * time.Hour)},
		{ID: 1, Name: domain.LocalizedText{"en": "Widget"}, Description: domain.LocalizedText{"en": "wooden toy"}, Category: domain.LocalizedText{"en": "Toys"}, Price: decimal.NewFromInt(100), InStock: true, CreatedAt: base},
		{ID: 2, Name: domain.LocalizedText{"en": "Lamp", "de": "Lampe"}, Category: domain.LocalizedText{"en": "Home"}, Price: decimal.NewFromInt(890), InStock: false, Tag: domain.TagNew, CreatedAt: base.Add(72 * time.Hour)},
		{ID: 4, Name: domain.LocalizedText{"en": "ball"}, Category: domain.LocalizedText{"en": "toys"}, Price: decimal.NewFromInt(100), InStock: true, Tag: domain.TagSale, CreatedAt: base.Add(24 * time.Hour)},
	}
}

func ids(ps []domain.Product) []int64 {
	out := make([]int64, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestApply_Filters(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want []int64
	}{
		{"default featured order", Query{}, []int64{1, 2, 3, 4}},
		{"category any case", Query{Category: "TOYS"}, []int64{1, 4}},
		{"category in other language", Query{Category: "haushalt"}, []int64{3}},
		{"tag", Query{Tag: domain.TagNew}, []int64{2}},
		{"in stock only", Query{InStockOnly: true}, []int64{1, 3, 4}},
		{"price range", Query{MinPrice: dec("100"), MaxPrice: dec("120")}, []int64{1, 3, 4}},
		{"search name", Query{Search: "lam"}, []int64{2}},
		{"search description", Query{Search: "WOODEN"}, []int64{1}},
		{"search requested language", Query{Search: "tasse", Lang: "de-DE"}, []int64{3}},
		{"search ignores unrequested language", Query{Search: "tasse", Lang: "en"}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Apply(fixtureProducts(), tt.q)
			assert.Equal(t, tt.want, ids(page.Products))
		})
	}
}

func TestApply_Sort(t *testing.T) {
	tests := []struct {
		sort Sort
		want []int64
	}{
		{SortPriceAsc, []int64{1, 4, 3, 2}},
		{SortPriceDesc, []int64{2, 3, 1, 4}},
		{SortNameAsc, []int64{4, 2, 3, 1}},
		{SortNewest, []int64{2, 3, 4, 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			products := fixtureProducts()
			page := Apply(products, Query{Sort: tt.sort})
			assert.Equal(t, tt.want, ids(page.Products))
			assert.Equal(t, int64(3), products[0].ID, "input must not be reordered")
		})
	}
}

func TestApply_Pagination(t *testing.T) {
	page := Apply(fixtureProducts(), Query{Limit: 3, Page: 2})
	assert.Equal(t, []int64{4}, ids(page.Products))
	assert.Equal(t, Pagination{Page: 2, Limit: 3, Total: 4, TotalPages: 2}, page.Pagination)

	page = Apply(fixtureProducts(), Query{Limit: 3, Page: 9})
	assert.Empty(t, page.Products)
	assert.Equal(t, 4, page.Pagination.Total)
}

func TestQuery_Normalized(t *testing.T) {
	q := Query{Limit: 500, Page: -1, Lang: "DE_at"}.Normalized()
	assert.Equal(t, MaxLimit, q.Limit)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, SortFeatured, q.Sort)
	assert.Equal(t, "de", q.Lang)

	assert.Equal(t, DefaultLimit, Query{}.Normalized().Limit)
}

func TestQuery_Validate(t *testing.T) {
	require.NoError(t, Query{Sort: SortNewest, Tag: domain.TagSale}.Validate())

	assert.ErrorIs(t, Query{Sort: "random"}.Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Query{Tag: "clearance"}.Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Query{MinPrice: dec("10"), MaxPrice: dec("5")}.Validate(), ErrInvalidQuery)
}

func TestCategoryNames(t *testing.T) {
	assert.Equal(t, []string{"Home", "Toys", "toys"}, categoryNames(fixtureProducts(), "en"))
	assert.Equal(t, []string{"Haushalt", "Home", "Toys", "toys"}, categoryNames(fixtureProducts(), "de"))
}

package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	catalog catalog.Source
	timeout time.Duration
}

func NewProductHandler(source catalog.Source, timeout time.Duration) *ProductHandler {
	return &ProductHandler{catalog: source, timeout: timeout}
}

// ProductResponse is a product localized to the request language.
type ProductResponse struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Discounted    bool             `json:"discounted"`
	Image         string           `json:"image"`
	Images        []string         `json:"images"`
	InStock       bool             `json:"in_stock"`
	Tag           string           `json:"tag,omitempty"`
}

type ProductsResponse struct {
	Products   []ProductResponse  `json:"products"`
	Pagination catalog.Pagination `json:"pagination"`
}

func toProductResponse(p domain.Product, lang string) ProductResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return ProductResponse{
		ID:            p.ID,
		Name:          p.Name.Get(lang),
		Description:   p.Description.Get(lang),
		Category:      p.Category.Get(lang),
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Discounted:    p.Discounted(),
		Image:         p.Image(),
		Images:        images,
		InStock:       p.InStock,
		Tag:           string(p.Tag),
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q, err := parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	if err := q.Validate(); err != nil {
		handleError(w, r, err)
		return
	}

	page, err := h.catalog.List(ctx, q)
	if err != nil {
		handleError(w, r, err)
		return
	}

	products := make([]ProductResponse, len(page.Products))
	for i, p := range page.Products {
		products[i] = toProductResponse(p, q.Lang)
	}
	respondJSON(w, http.StatusOK, ProductsResponse{Products: products, Pagination: page.Pagination})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}

	p, err := h.catalog.Get(ctx, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p, language(r)))
}

func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.Categories(ctx, language(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

func parseQuery(r *http.Request) (catalog.Query, error) {
	v := r.URL.Query()
	q := catalog.Query{
		Category: v.Get("category"),
		Tag:      domain.ProductTag(v.Get("tag")),
		Search:   v.Get("search"),
		Lang:     language(r),
		Sort:     catalog.Sort(v.Get("sort")),
	}

	var err error
	if s := v.Get("in_stock"); s != "" {
		if q.InStockOnly, err = strconv.ParseBool(s); err != nil {
			return q, errInvalidParam("in_stock")
		}
	}
	if q.MinPrice, err = decimalParam(v.Get("min_price")); err != nil {
		return q, errInvalidParam("min_price")
	}
	if q.MaxPrice, err = decimalParam(v.Get("max_price")); err != nil {
		return q, errInvalidParam("max_price")
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return q, errInvalidParam("limit")
		}
	}
	if s := v.Get("page"); s != "" {
		if q.Page, err = strconv.Atoi(s); err != nil {
			return q, errInvalidParam("page")
		}
	}
	return q, nil
}

func decimalParam(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func errInvalidParam(name string) error {
	return fmt.Errorf("invalid value for %s", name)
}

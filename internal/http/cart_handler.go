package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/storefront"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxLineQuantity = 99

type CartHandler struct {
	svc     *storefront.Service
	timeout time.Duration
}

func NewCartHandler(svc *storefront.Service, timeout time.Duration) *CartHandler {
	return &CartHandler{svc: svc, timeout: timeout}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	// Status is "corrupt" or "failed" when the stored cart could not be read and the cart
	// was started empty.
	Status string `json:"status"`
}

func cartResponse(m *cart.Manager) CartResponse {
	return CartResponse{
		Items:      m.Items(),
		TotalItems: m.TotalItems(),
		TotalPrice: m.TotalPrice(),
		Status:     m.LoadStatus().String(),
	}
}

func (h *CartHandler) open(r *http.Request) (context.Context, context.CancelFunc, *storefront.Session) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	return ctx, cancel, h.svc.Open(ctx, sessionID(r.Context()), language(r))
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	_, cancel, sess := h.open(r)
	defer cancel()
	respondJSON(w, http.StatusOK, cartResponse(sess.Cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	ctx, cancel, sess := h.open(r)
	defer cancel()
	if err := sess.AddToCart(ctx, req.ProductID, req.Quantity); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(sess.Cart))
}

// UpdateQuantity sets the line quantity; zero or less removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	ctx, cancel, sess := h.open(r)
	defer cancel()
	sess.Cart.UpdateQuantity(ctx, productID, req.Quantity)
	respondJSON(w, http.StatusOK, cartResponse(sess.Cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel, sess := h.open(r)
	defer cancel()
	sess.Cart.RemoveFromCart(ctx, productID)
	respondJSON(w, http.StatusOK, cartResponse(sess.Cart))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, sess := h.open(r)
	defer cancel()
	sess.Cart.ClearCart(ctx)
	respondJSON(w, http.StatusOK, cartResponse(sess.Cart))
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return id, true
}

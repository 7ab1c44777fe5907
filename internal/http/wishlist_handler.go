package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/storefront"
	"github.com/fjod/go_storefront/internal/wishlist"
)

type WishlistHandler struct {
	svc     *storefront.Service
	timeout time.Duration
}

func NewWishlistHandler(svc *storefront.Service, timeout time.Duration) *WishlistHandler {
	return &WishlistHandler{svc: svc, timeout: timeout}
}

type WishlistRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type WishlistResponse struct {
	Items  []domain.WishlistItem `json:"items"`
	Count  int                   `json:"count"`
	Status string                `json:"status"`
}

func wishlistResponse(s *wishlist.Store) WishlistResponse {
	return WishlistResponse{Items: s.Items(), Count: s.Count(), Status: s.LoadStatus().String()}
}

func (h *WishlistHandler) open(r *http.Request) (context.Context, context.CancelFunc, *storefront.Session) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	return ctx, cancel, h.svc.Open(ctx, sessionID(r.Context()), language(r))
}

// Get refreshes stock flags when ?refresh=true.
func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, sess := h.open(r)
	defer cancel()

	if r.URL.Query().Get("refresh") == "true" {
		if err := sess.RefreshWishlist(ctx); err != nil {
			slog.WarnContext(ctx, "wishlist stock refresh incomplete", slog.Any("error", err))
		}
	}
	respondJSON(w, http.StatusOK, wishlistResponse(sess.Wishlist))
}

func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req WishlistRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	ctx, cancel, sess := h.open(r)
	defer cancel()
	if err := sess.AddToWishlist(ctx, req.ProductID); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, wishlistResponse(sess.Wishlist))
}

func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel, sess := h.open(r)
	defer cancel()
	sess.Wishlist.Remove(ctx, productID)
	respondJSON(w, http.StatusOK, wishlistResponse(sess.Wishlist))
}

type ToggleResponse struct {
	Listed   bool             `json:"listed"`
	Wishlist WishlistResponse `json:"wishlist"`
}

func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel, sess := h.open(r)
	defer cancel()
	listed, err := sess.ToggleWishlist(ctx, productID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ToggleResponse{Listed: listed, Wishlist: wishlistResponse(sess.Wishlist)})
}

func (h *WishlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, sess := h.open(r)
	defer cancel()
	sess.Wishlist.Clear(ctx)
	respondJSON(w, http.StatusOK, wishlistResponse(sess.Wishlist))
}

func (h *WishlistHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel, sess := h.open(r)
	defer cancel()
	if err := sess.MoveToCart(ctx, productID); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"wishlist": wishlistResponse(sess.Wishlist),
		"cart":     cartResponse(sess.Cart),
	})
}

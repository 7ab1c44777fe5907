package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/confirmation"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/storefront"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	svc     *storefront.Service
	timeout time.Duration
}

func NewOrdersHandler(svc *storefront.Service, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{svc: svc, timeout: timeout}
}

type ConfirmationResponse struct {
	confirmation.View
	Text string `json:"text"`
}

type OrdersResponse struct {
	Orders []domain.CompletedOrder `json:"orders"`
}

// Confirmation renders the order confirmation page once; the completed order is consumed.
// Use ?format=text for the plain-text summary.
func (h *OrdersHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.svc.Open(ctx, sessionID(r.Context()), language(r)).Confirmation(ctx, r.URL.Query().Get("payment"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	text := confirmation.Text(view)
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(text))
		return
	}
	respondJSON(w, http.StatusOK, ConfirmationResponse{View: view, Text: text})
}

func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.svc.Open(ctx, sessionID(r.Context()), language(r)).Orders(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.CompletedOrder{}
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Orders: orders})
}

func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.svc.Open(ctx, sessionID(r.Context()), language(r)).Order(ctx, chi.URLParam(r, "number"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

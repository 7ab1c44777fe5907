package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/storefront"
)

type CheckoutHandler struct {
	svc     *storefront.Service
	timeout time.Duration
}

func NewCheckoutHandler(svc *storefront.Service, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, timeout: timeout}
}

// Submit validates the form, writes the order draft and answers with the payment route.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.Open(ctx, sessionID(r.Context()), language(r)).Checkout(ctx, form)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (h *CheckoutHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	draft, err := h.svc.Open(ctx, sessionID(r.Context()), language(r)).Draft(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

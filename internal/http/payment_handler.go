package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/storefront"
	"github.com/go-chi/chi/v5"
)

type PaymentHandler struct {
	svc            *storefront.Service
	timeout        time.Duration
	// covers the provider call, the success delay and finalization
	confirmTimeout time.Duration
}

func NewPaymentHandler(svc *storefront.Service, timeout, confirmTimeout time.Duration) *PaymentHandler {
	return &PaymentHandler{svc: svc, timeout: timeout, confirmTimeout: confirmTimeout}
}

type ConfirmResponse struct {
	Result   payment.Result `json:"result"`
	Redirect string         `json:"redirect"`
}

const confirmationRedirect = "/order-confirmation?payment=success"

func provider(r *http.Request) payment.Provider {
	return payment.Provider(chi.URLParam(r, "provider"))
}

// Prepare loads the pending draft and returns what the provider SDK needs.
func (h *PaymentHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	prep, err := h.svc.Open(ctx, sessionID(r.Context()), language(r)).PreparePayment(ctx, provider(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, prep)
}

func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var c payment.Confirmation
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.confirmTimeout)
	defer cancel()

	res, err := h.svc.Open(ctx, sessionID(r.Context()), language(r)).ConfirmPayment(ctx, provider(r), c)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ConfirmResponse{Result: res, Redirect: confirmationRedirect})
}

func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, ok := h.svc.Open(ctx, sessionID(r.Context()), language(r)).PaymentStatus(provider(r))
	if !ok {
		respondError(w, http.StatusNotFound, "no_payment", "no payment in progress")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

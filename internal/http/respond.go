package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/handoff"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/storefront"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps service errors to HTTP status codes and error codes.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr     *checkout.ValidationError
		declined *payment.DeclinedError
	)

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  verr.First(),
			Code:   "validation_failed",
			Fields: verr.Map(),
		})
	case errors.As(err, &declined):
		respondJSON(w, http.StatusPaymentRequired, ErrorResponse{
			Error: declined.Message,
			Code:  "payment_failed",
		})
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", "product not found")
	case errors.Is(err, catalog.ErrInvalidQuery):
		respondError(w, http.StatusBadRequest, "invalid_query", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", "Your cart is empty")
	case errors.Is(err, handoff.ErrNoDraft), errors.Is(err, handoff.ErrDraftCorrupt):
		respondError(w, http.StatusNotFound, "no_order_data", "No order data found. Please complete checkout first.")
	case errors.Is(err, payment.ErrUnknownProvider):
		respondError(w, http.StatusNotFound, "unknown_provider", err.Error())
	case errors.Is(err, payment.ErrSDKNotLoaded):
		respondError(w, http.StatusConflict, "sdk_not_loaded", payment.ErrSDKNotLoaded.Error())
	case errors.Is(err, payment.ErrPaymentInProgress):
		respondError(w, http.StatusConflict, "payment_in_progress", err.Error())
	case errors.Is(err, payment.ErrAlreadyPaid):
		respondError(w, http.StatusConflict, "already_paid", err.Error())
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, storefront.ErrNotInWishlist):
		respondError(w, http.StatusNotFound, "not_in_wishlist", err.Error())
	case errors.Is(err, storefront.ErrOutOfStock):
		respondError(w, http.StatusConflict, "out_of_stock", err.Error())
	case errors.Is(err, storefront.ErrHistoryUnavailable), errors.Is(err, circuitbreaker.ErrOpen):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, checkout.ErrDraftWrite):
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "order could not be saved, please try again")
	default:
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/storage"
)

const (
	DraftKey     = "order_draft"
	CompletedKey = "completed_order"

	DefaultDraftTTL     = 30 * time.Minute
	DefaultCompletedTTL = 30 * time.Minute
)

var (
	ErrNoDraft      = errors.New("no order data")
	ErrDraftCorrupt = errors.New("order data is unreadable")
	ErrNoCompleted  = errors.New("no completed order")
	ErrSuperseded   = errors.New("order draft was superseded")
)

// Handoff moves one order draft from checkout to payment, and the completed order from
// payment to confirmation, for a single browsing session.
type Handoff struct {
	store        storage.Store
	sessionID    string
	draftTTL     time.Duration
	completedTTL time.Duration
	log          *slog.Logger
}

func New(store storage.Store, sessionID string, draftTTL time.Duration, log *slog.Logger) *Handoff {
	if draftTTL <= 0 {
		draftTTL = DefaultDraftTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handoff{
		store:        store,
		sessionID:    sessionID,
		draftTTL:     draftTTL,
		completedTTL: DefaultCompletedTTL,
		log:          log.With(slog.String("component", "handoff")),
	}
}

// Put overwrites any previous draft.
func (h *Handoff) Put(ctx context.Context, draft domain.OrderDraft) error {
	if err := storage.SaveJSON(ctx, h.store, h.sessionID, DraftKey, draft, h.draftTTL); err != nil {
		return fmt.Errorf("save order draft: %w", err)
	}
	return nil
}

// Get returns ErrNoDraft when the slot is empty and ErrDraftCorrupt when it cannot be decoded
// or its pricing no longer adds up.
func (h *Handoff) Get(ctx context.Context) (domain.OrderDraft, error) {
	draft, status, err := storage.LoadJSON[domain.OrderDraft](ctx, h.store, h.sessionID, DraftKey)
	switch status {
	case storage.StatusEmpty:
		return domain.OrderDraft{}, ErrNoDraft
	case storage.StatusCorrupt:
		h.log.WarnContext(ctx, "order draft unreadable", slog.String("session_id", h.sessionID), slog.Any("error", err))
		return domain.OrderDraft{}, fmt.Errorf("%w: %w", ErrDraftCorrupt, err)
	case storage.StatusFailed:
		return domain.OrderDraft{}, fmt.Errorf("load order draft: %w", err)
	}

	if err := draft.Validate(); err != nil {
		h.log.WarnContext(ctx, "order draft failed pricing check", slog.String("draft_id", draft.ID), slog.Any("error", err))
		return domain.OrderDraft{}, fmt.Errorf("%w: %w", ErrDraftCorrupt, err)
	}
	return draft, nil
}

func (h *Handoff) PutCompleted(ctx context.Context, order domain.CompletedOrder) error {
	if err := storage.SaveJSON(ctx, h.store, h.sessionID, CompletedKey, order, h.completedTTL); err != nil {
		return fmt.Errorf("save completed order: %w", err)
	}
	return nil
}

// TakeCompleted reads and deletes the completed order. A second call returns ErrNoCompleted.
func (h *Handoff) TakeCompleted(ctx context.Context) (domain.CompletedOrder, error) {
	order, status, err := storage.TakeJSON[domain.CompletedOrder](ctx, h.store, h.sessionID, CompletedKey)
	switch status {
	case storage.StatusEmpty:
		return domain.CompletedOrder{}, ErrNoCompleted
	case storage.StatusCorrupt:
		h.log.WarnContext(ctx, "completed order unreadable", slog.String("session_id", h.sessionID), slog.Any("error", err))
		return domain.CompletedOrder{}, ErrNoCompleted
	case storage.StatusFailed:
		return domain.CompletedOrder{}, fmt.Errorf("take completed order: %w", err)
	}
	return order, nil
}

// Finalize deletes the draft and the cart so a paid draft cannot be resubmitted. Both are
// left alone with ErrSuperseded unless the slot still holds draftID.
func (h *Handoff) Finalize(ctx context.Context, draftID string) error {
	raw, err := h.store.Get(ctx, h.sessionID, DraftKey)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("finalize handoff: %w", err)
	}

	var current struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &current); err != nil || current.ID != draftID {
		return ErrSuperseded
	}

	deleted, err := h.store.DeleteIfMatch(ctx, h.sessionID, DraftKey, raw, cart.StorageKey)
	if err != nil {
		return fmt.Errorf("finalize handoff: %w", err)
	}
	if !deleted {
		return ErrSuperseded
	}
	return nil
}

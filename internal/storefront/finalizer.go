package storefront

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/handoff"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/fjod/go_storefront/internal/payment"
	"golang.org/x/sync/errgroup"
)

// Ledger is satisfied by repository.Repository.
type Ledger interface {
	RecordOrder(ctx context.Context, order domain.CompletedOrder) (bool, error)
}

// Finalizer turns a confirmed payment into a completed order. Only the session store writes
// can fail it; the order sinks are best effort.
type Finalizer struct {
	ledger Ledger
	orders orders.Submitter
	log    *slog.Logger
	now    func() time.Time
}

func NewFinalizer(ledger Ledger, submitter orders.Submitter, log *slog.Logger) *Finalizer {
	return &Finalizer{
		ledger: ledger,
		orders: submitter,
		log:    log.With(slog.String("component", "finalizer")),
		now:    time.Now,
	}
}

// For binds the finalizer to one browsing session.
func (f *Finalizer) For(sessionID string, h *handoff.Handoff) payment.SuccessFunc {
	return func(ctx context.Context, draft domain.OrderDraft, res payment.Result) error {
		_, err := f.Finalize(ctx, sessionID, h, draft, res)
		return err
	}
}

func (f *Finalizer) Finalize(ctx context.Context, sessionID string, h *handoff.Handoff, draft domain.OrderDraft, res payment.Result) (domain.CompletedOrder, error) {
	now := f.now().UTC()
	draft.Status = domain.OrderStatusPaid
	order := domain.CompletedOrder{
		OrderNumber:       orders.NewNumber(now),
		SessionID:         sessionID,
		Draft:             draft,
		Provider:          res.Provider.String(),
		ProviderReference: res.Reference,
		Status:            domain.OrderStatusPaid,
		PaidAt:            now,
	}
	log := f.log.With(slog.String("order_number", order.OrderNumber), slog.String("draft_id", draft.ID))

	var errs []error
	err := h.Finalize(ctx, draft.ID)
	if errors.Is(err, handoff.ErrSuperseded) {
		// The session checked out again while this payment ran; the newer draft and its cart stay.
		log.WarnContext(ctx, "paid draft was superseded, keeping current checkout")
	} else {
		if err != nil {
			log.ErrorContext(ctx, "clear cart and draft failed", slog.Any("error", err))
			errs = append(errs, err)
		}
		if err := h.PutCompleted(ctx, order); err != nil {
			log.ErrorContext(ctx, "write completed order failed", slog.Any("error", err))
			errs = append(errs, err)
		}
	}

	f.record(ctx, log, order)
	log.InfoContext(ctx, "order finalized", slog.String("provider", order.Provider))
	return order, errors.Join(errs...)
}

// record writes the order to the ledger and the Orders API concurrently and only logs failures.
func (f *Finalizer) record(ctx context.Context, log *slog.Logger, order domain.CompletedOrder) {
	var g errgroup.Group
	if f.ledger != nil {
		g.Go(func() error {
			created, err := f.ledger.RecordOrder(ctx, order)
			if err != nil {
				log.ErrorContext(ctx, "record order in ledger failed", slog.Any("error", err))
				return nil
			}
			if !created {
				log.WarnContext(ctx, "order already recorded for draft")
			}
			return nil
		})
	}
	if f.orders != nil {
		g.Go(func() error {
			if err := f.orders.Submit(ctx, order); err != nil {
				log.ErrorContext(ctx, "submit order to orders api failed", slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrEmptyCart  = errors.New("cart is empty")
	ErrDraftWrite = errors.New("order draft could not be saved")
)

// Route is the payment page a draft is handed to.
type Route string

const (
	RouteStripe  Route = "/payment/stripe"
	RoutePayPal  Route = "/payment/paypal"
	RouteChooser Route = "/payment"
)

// RouteFor sends placeholder and unknown methods to the generic chooser.
func RouteFor(m domain.PaymentMethod) Route {
	switch m {
	case domain.PaymentMethodCreditCard:
		return RouteStripe
	case domain.PaymentMethodPayPal:
		return RoutePayPal
	}
	return RouteChooser
}

// CartReader is satisfied by cart.Manager.
type CartReader interface {
	Items() []domain.CartItem
}

// DraftWriter is satisfied by handoff.Handoff.
type DraftWriter interface {
	Put(ctx context.Context, draft domain.OrderDraft) error
}

type Result struct {
	Draft domain.OrderDraft `json:"draft"`
	Route Route             `json:"route"`
}

type Collector struct {
	drafts    DraftWriter
	validator *FormValidator
	pricing   PricingConfig
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Collector)

func WithPricing(p PricingConfig) Option {
	return func(c *Collector) { c.pricing = p }
}

func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

func WithValidator(v *FormValidator) Option {
	return func(c *Collector) { c.validator = v }
}

func NewCollector(drafts DraftWriter, log *slog.Logger, opts ...Option) *Collector {
	if log == nil {
		log = slog.Default()
	}
	c := &Collector{
		drafts:  drafts,
		pricing: DefaultPricing(),
		log:     log.With(slog.String("component", "checkout")),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.validator == nil {
		c.validator = NewFormValidator()
	}
	return c
}

// Submit validates the form, builds the draft from the current cart and writes it to the
// handoff slot. Nothing is written unless validation passes and the cart has items.
func (c *Collector) Submit(ctx context.Context, form Form, cart CartReader) (Result, error) {
	form = form.Normalized()
	if err := c.validator.Validate(form); err != nil {
		return Result{}, err
	}

	items := FreezeItems(cart.Items())
	if len(items) == 0 {
		return Result{}, ErrEmptyCart
	}

	draft := domain.OrderDraft{
		ID: c.newID(),
		Customer: domain.Customer{
			FirstName: form.FirstName,
			LastName:  form.LastName,
			Email:     form.Email,
			Phone:     form.Phone,
		},
		Shipping: domain.Address{
			Address:    form.Address,
			City:       form.City,
			PostalCode: form.PostalCode,
			Country:    form.Country,
		},
		Items:         items,
		Pricing:       c.pricing.Price(items),
		Currency:      c.pricing.Currency,
		PaymentMethod: form.PaymentMethod,
		Status:        domain.OrderStatusPending,
		CreatedAt:     c.now().UTC(),
	}
	if err := draft.Validate(); err != nil {
		return Result{}, fmt.Errorf("build draft: %w", err)
	}

	if err := c.drafts.Put(ctx, draft); err != nil {
		c.log.ErrorContext(ctx, "write order draft failed", slog.String("draft_id", draft.ID), slog.Any("error", err))
		return Result{}, fmt.Errorf("%w: %w", ErrDraftWrite, err)
	}

	route := RouteFor(draft.PaymentMethod)
	c.log.InfoContext(ctx, "order draft created",
		slog.String("draft_id", draft.ID),
		slog.String("payment_method", draft.PaymentMethod.String()),
		slog.String("route", string(route)),
		slog.Int("items", draft.ItemCount()),
		slog.String("total", draft.Pricing.Total.String()))

	return Result{Draft: draft, Route: route}, nil
}

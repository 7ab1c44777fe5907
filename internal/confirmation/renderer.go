package confirmation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/handoff"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
	StatusUnknown Status = "unknown"
)

type Source string

const (
	SourceCompleted Source = "completed_order"
	SourceDraft     Source = "order_draft"
	SourceNone      Source = "none"
)

// Slots is satisfied by handoff.Handoff.
type Slots interface {
	TakeCompleted(ctx context.Context) (domain.CompletedOrder, error)
	Get(ctx context.Context) (domain.OrderDraft, error)
}

type View struct {
	OrderNumber   string               `json:"order_number"`
	Status        Status               `json:"status"`
	Source        Source               `json:"source"`
	FlagMismatch  bool                 `json:"flag_mismatch"`
	Customer      *domain.Customer     `json:"customer,omitempty"`
	Shipping      *domain.Address      `json:"shipping,omitempty"`
	Items         []domain.DraftItem   `json:"items"`
	Pricing       *domain.Pricing      `json:"pricing,omitempty"`
	Currency      string               `json:"currency,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method,omitempty"`
	Provider      string               `json:"provider,omitempty"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
}

type Renderer struct {
	slots Slots
	log   *slog.Logger
	now   func() time.Time
}

func NewRenderer(slots Slots, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{slots: slots, log: log.With(slog.String("component", "confirmation")), now: time.Now}
}

// Render builds the confirmation page. The completed order is consumed; the draft is only read.
// paymentFlag is the redirect's payment query value; it is compared with the record found but
// never decides the status.
func (r *Renderer) Render(ctx context.Context, paymentFlag string) (View, error) {
	view, err := r.resolve(ctx)
	if err != nil {
		return View{}, err
	}

	flagged := strings.EqualFold(strings.TrimSpace(paymentFlag), "success")
	if paymentFlag != "" && flagged != (view.Status == StatusPaid) {
		view.FlagMismatch = true
		r.log.WarnContext(ctx, "payment flag disagrees with stored order",
			slog.String("flag", paymentFlag),
			slog.String("status", string(view.Status)),
			slog.String("order_number", view.OrderNumber))
	}
	return view, nil
}

func (r *Renderer) resolve(ctx context.Context) (View, error) {
	order, err := r.slots.TakeCompleted(ctx)
	switch {
	case err == nil:
		return fromCompleted(order), nil
	case !errors.Is(err, handoff.ErrNoCompleted):
		return View{}, fmt.Errorf("read completed order: %w", err)
	}

	draft, err := r.slots.Get(ctx)
	switch {
	case err == nil:
		return fromDraft(draft, orders.NewNumber(r.now())), nil
	case errors.Is(err, handoff.ErrNoDraft), errors.Is(err, handoff.ErrDraftCorrupt):
	default:
		return View{}, fmt.Errorf("read order draft: %w", err)
	}

	return View{
		OrderNumber: orders.NewNumber(r.now()),
		Status:      StatusUnknown,
		Source:      SourceNone,
		Items:       []domain.DraftItem{},
	}, nil
}

func fromCompleted(o domain.CompletedOrder) View {
	v := fromDraft(o.Draft, o.OrderNumber)
	v.Source = SourceCompleted
	v.Status = StatusPaid
	v.Provider = o.Provider
	paidAt := o.PaidAt
	v.PaidAt = &paidAt
	return v
}

func fromDraft(d domain.OrderDraft, number string) View {
	customer, shipping, pricing := d.Customer, d.Shipping, d.Pricing
	items := d.Items
	if items == nil {
		items = []domain.DraftItem{}
	}
	return View{
		OrderNumber:   number,
		Status:        StatusPending,
		Source:        SourceDraft,
		Customer:      &customer,
		Shipping:      &shipping,
		Items:         items,
		Pricing:       &pricing,
		Currency:      d.Currency,
		PaymentMethod: d.PaymentMethod,
	}
}

// Text renders a plain-text receipt of the view.
func Text(v View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s\n", v.OrderNumber)
	fmt.Fprintf(&b, "Status: %s\n", v.Status)
	if v.Customer != nil {
		fmt.Fprintf(&b, "Customer: %s <%s>\n", v.Customer.FullName(), v.Customer.Email)
	}
	if v.Shipping != nil {
		fmt.Fprintf(&b, "Ship to: %s, %s %s, %s\n", v.Shipping.Address, v.Shipping.PostalCode, v.Shipping.City, v.Shipping.Country)
	}
	if len(v.Items) > 0 {
		b.WriteString("\n")
		for _, it := range v.Items {
			fmt.Fprintf(&b, "  %d x %-24s %10s\n", it.Quantity, it.Name, money(it.Total, v.Currency))
		}
	}
	if v.Pricing != nil {
		b.WriteString("\n")
		fmt.Fprintf(&b, "  %-28s %10s\n", "Subtotal", money(v.Pricing.Subtotal, v.Currency))
		fmt.Fprintf(&b, "  %-28s %10s\n", "Shipping", money(v.Pricing.Shipping, v.Currency))
		fmt.Fprintf(&b, "  %-28s %10s\n", "Tax", money(v.Pricing.Tax, v.Currency))
		fmt.Fprintf(&b, "  %-28s %10s\n", "Total", money(v.Pricing.Total, v.Currency))
	}
	if v.PaymentMethod != "" {
		fmt.Fprintf(&b, "\nPayment: %s\n", v.PaymentMethod)
	}
	return b.String()
}

func money(d decimal.Decimal, currency string) string {
	s := d.StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

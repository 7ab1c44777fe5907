package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodPayPal         PaymentMethod = "paypal"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) String() string {
	return string(m)
}

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
)

var ErrPricingMismatch = errors.New("order pricing is inconsistent")

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// DraftItem is a frozen copy of a cart line at submission time.
type DraftItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

type Pricing struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// OrderDraft is the pre-payment snapshot handed from checkout to the payment step.
type OrderDraft struct {
	ID            string        `json:"id"`
	Customer      Customer      `json:"customer"`
	Shipping      Address       `json:"shipping"`
	Items         []DraftItem   `json:"items"`
	Pricing       Pricing       `json:"pricing"`
	Currency      string        `json:"currency"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        OrderStatus   `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Validate checks the pricing identities: every line total is price*quantity, the subtotal is
// the sum of line totals and the total is subtotal+shipping+tax. Amounts must be non-negative.
func (d OrderDraft) Validate() error {
	sum := decimal.Zero
	for _, it := range d.Items {
		if it.Quantity < 1 {
			return fmt.Errorf("%w: item %d has quantity %d", ErrPricingMismatch, it.ID, it.Quantity)
		}
		if !it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Equal(it.Total) {
			return fmt.Errorf("%w: item %d total", ErrPricingMismatch, it.ID)
		}
		sum = sum.Add(it.Total)
	}
	p := d.Pricing
	for _, v := range []decimal.Decimal{p.Subtotal, p.Shipping, p.Tax, p.Total} {
		if v.IsNegative() {
			return fmt.Errorf("%w: negative amount", ErrPricingMismatch)
		}
	}
	if !sum.Equal(p.Subtotal) {
		return fmt.Errorf("%w: subtotal %s != items %s", ErrPricingMismatch, p.Subtotal, sum)
	}
	if !p.Subtotal.Add(p.Shipping).Add(p.Tax).Equal(p.Total) {
		return fmt.Errorf("%w: total %s", ErrPricingMismatch, p.Total)
	}
	return nil
}

// ItemCount is the sum of line quantities.
func (d OrderDraft) ItemCount() int {
	n := 0
	for _, it := range d.Items {
		n += it.Quantity
	}
	return n
}

// CompletedOrder is the finalized record written once the provider confirmed payment.
type CompletedOrder struct {
	OrderNumber       string      `json:"order_number"`
	SessionID         string      `json:"session_id"`
	Draft             OrderDraft  `json:"draft"`
	Provider          string      `json:"provider"`
	ProviderReference string      `json:"provider_reference"`
	Status            OrderStatus `json:"status"`
	PaidAt            time.Time   `json:"paid_at"`
}

package payment

import (
	"context"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderPayPal Provider = "paypal"
)

func (p Provider) String() string {
	return string(p)
}

// Preparation is what the client-side SDK needs to collect payment for one draft.
type Preparation struct {
	Provider     Provider        `json:"provider"`
	DraftID      string          `json:"draft_id"`
	Reference    string          `json:"reference"`
	ClientSecret string          `json:"client_secret,omitempty"`
	PublicKey    string          `json:"public_key"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

// Confirmation carries what the browser SDK collected.
type Confirmation struct {
	// PaymentMethodID is the Stripe payment method created by Elements.
	PaymentMethodID string `json:"payment_method_id,omitempty"`
	// OrderID is the PayPal order the buyer approved.
	OrderID string `json:"order_id,omitempty"`
}

// Result is the provider's answer to a confirmation. Status is the provider-native status.
type Result struct {
	Provider  Provider `json:"provider"`
	Reference string   `json:"reference"`
	Status    string   `json:"status"`
	Succeeded bool     `json:"succeeded"`
	Message   string   `json:"message,omitempty"`
}

type Adapter interface {
	Provider() Provider
	Prepare(ctx context.Context, draft domain.OrderDraft) (Preparation, error)
	Confirm(ctx context.Context, prep Preparation, c Confirmation) (Result, error)
}

// zeroDecimal currencies have no minor unit.
var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true, "KRW": true,
	"MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true, "VUV": true, "XAF": true,
	"XOF": true, "XPF": true,
}

// MinorUnits converts an amount into the smallest currency unit.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimal[strings.ToUpper(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}

// FormatAmount renders an amount with the currency's number of decimals.
func FormatAmount(amount decimal.Decimal, currency string) string {
	if zeroDecimal[strings.ToUpper(currency)] {
		return amount.StringFixed(0)
	}
	return amount.StringFixed(2)
}

package checkout

import (
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type PricingConfig struct {
	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
	Currency    string
}

func DefaultPricing() PricingConfig {
	return PricingConfig{
		ShippingFee: decimal.NewFromInt(100),
		TaxRate:     decimal.RequireFromString("0.10"),
		Currency:    "USD",
	}
}

// Price computes the breakdown for the frozen lines. Tax is rounded half away from zero to a whole unit.
func (c PricingConfig) Price(items []domain.DraftItem) domain.Pricing {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Total)
	}

	shipping := decimal.Zero
	if len(items) > 0 {
		shipping = c.ShippingFee
	}
	tax := subtotal.Mul(c.TaxRate).Round(0)

	return domain.Pricing{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// FreezeItems copies cart lines into draft lines with their totals stamped.
func FreezeItems(items []domain.CartItem) []domain.DraftItem {
	out := make([]domain.DraftItem, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		out = append(out, domain.DraftItem{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Total:    it.Subtotal(),
		})
	}
	return out
}

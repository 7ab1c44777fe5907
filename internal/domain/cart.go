package domain

import "github.com/shopspring/decimal"

// CartItem is one product-and-quantity entry. ID is the product id; display fields are
// copied from the product when the item is first added.
type CartItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Subtotal is price times quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewCartItem denormalizes a product for the given language.
func NewCartItem(p Product, lang string, quantity int) CartItem {
	return CartItem{
		ID:       p.ID,
		Name:     p.Name.Get(lang),
		Image:    p.Image(),
		Category: p.Category.Get(lang),
		Price:    p.Price,
		Quantity: quantity,
	}
}

type WishlistItem struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Image         string           `json:"image"`
	Category      string           `json:"category"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	InStock       bool             `json:"in_stock"`
}

func NewWishlistItem(p Product, lang string) WishlistItem {
	return WishlistItem{
		ID:            p.ID,
		Name:          p.Name.Get(lang),
		Image:         p.Image(),
		Category:      p.Category.Get(lang),
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		InStock:       p.InStock,
	}
}

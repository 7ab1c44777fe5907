package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLanguage is used when a localized value has no entry for the requested language.
const DefaultLanguage = "en"

// LocalizedText maps a language tag to a string.
type LocalizedText map[string]string

// Get returns the value for lang, falling back to DefaultLanguage and then to any value.
func (t LocalizedText) Get(lang string) string {
	if v, ok := t[normalizeLang(lang)]; ok && v != "" {
		return v
	}
	if v, ok := t[DefaultLanguage]; ok && v != "" {
		return v
	}
	for _, v := range t {
		if v != "" {
			return v
		}
	}
	return ""
}

// Matches reports whether any translation contains needle, case-insensitively.
func (t LocalizedText) Matches(needle string) bool {
	needle = strings.ToLower(needle)
	for _, v := range t {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// Equals reports whether any translation equals s, case-insensitively.
func (t LocalizedText) Equals(s string) bool {
	for _, v := range t {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// NormalizeLanguage reduces "en-US" style tags to their primary subtag.
func NormalizeLanguage(lang string) string {
	if n := normalizeLang(lang); n != "" {
		return n
	}
	return DefaultLanguage
}

type ProductTag string

const (
	TagNone       ProductTag = ""
	TagNew        ProductTag = "new"
	TagSale       ProductTag = "sale"
	TagBestseller ProductTag = "bestseller"
)

func (t ProductTag) Valid() bool {
	switch t {
	case TagNone, TagNew, TagSale, TagBestseller:
		return true
	}
	return false
}

type Product struct {
	ID            int64            `json:"id"`
	Name          LocalizedText    `json:"name"`
	Description   LocalizedText    `json:"description"`
	Category      LocalizedText    `json:"category"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Images        []string         `json:"images"`
	InStock       bool             `json:"in_stock"`
	Tag           ProductTag       `json:"tag,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Image returns the primary image reference or "".
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Discounted reports whether an original price above the current price is set.
func (p Product) Discounted() bool {
	return p.OriginalPrice != nil && p.OriginalPrice.GreaterThan(p.Price)
}

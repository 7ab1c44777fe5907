package catalog

import (
	"sort"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
)

// Apply runs the filter, sort and pagination pipeline over products. The input is not modified.
func Apply(products []domain.Product, q Query) Page {
	q = q.Normalized()

	matched := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if matches(p, q) {
			matched = append(matched, p)
		}
	}

	return paginate(matched, q)
}

// paginate sorts matched in place and cuts out the requested page.
func paginate(matched []domain.Product, q Query) Page {
	sortProducts(matched, q.Sort, q.Lang)

	total := len(matched)
	totalPages := (total + q.Limit - 1) / q.Limit
	start := (q.Page - 1) * q.Limit
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}

	return Page{
		Products: matched[start:end],
		Pagination: Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

func matches(p domain.Product, q Query) bool {
	if q.Category != "" && !p.Category.Equals(q.Category) {
		return false
	}
	if q.Tag != domain.TagNone && p.Tag != q.Tag {
		return false
	}
	if q.InStockOnly && !p.InStock {
		return false
	}
	if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
		return false
	}
	if s := strings.TrimSpace(q.Search); s != "" && !searchMatches(p, s, q.Lang) {
		return false
	}
	return true
}

// searchMatches looks at the requested language and the default one.
func searchMatches(p domain.Product, needle, lang string) bool {
	needle = strings.ToLower(needle)
	for _, field := range []domain.LocalizedText{p.Name, p.Description, p.Category} {
		for _, l := range []string{lang, domain.DefaultLanguage} {
			if v, ok := field[l]; ok && strings.Contains(strings.ToLower(v), needle) {
				return true
			}
		}
	}
	return false
}

func sortProducts(ps []domain.Product, s Sort, lang string) {
	var less func(a, b domain.Product) bool
	switch s {
	case SortPriceAsc:
		less = func(a, b domain.Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b domain.Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortNameAsc:
		less = func(a, b domain.Product) bool {
			return strings.ToLower(a.Name.Get(lang)) < strings.ToLower(b.Name.Get(lang))
		}
	case SortNewest:
		less = func(a, b domain.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		less = func(a, b domain.Product) bool { return a.ID < b.ID }
	}
	sort.SliceStable(ps, func(i, j int) bool { return less(ps[i], ps[j]) })
}

// categoryNames returns the distinct localized category names, sorted.
func categoryNames(products []domain.Product, lang string) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, p := range products {
		name := p.Category.Get(lang)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

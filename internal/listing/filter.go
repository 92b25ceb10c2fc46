package listing

import (
	"sort"
	"strings"

	"gatortrader_backend/internal/common"

	"github.com/shopspring/decimal"
)

// SortOrder names a browse ordering.
type SortOrder string

const (
	SortNewest       SortOrder = "newest"
	SortOldest       SortOrder = "oldest"
	SortPriceLowHigh SortOrder = "price_low_high"
	SortPriceHighLow SortOrder = "price_high_low"
)

// Filter narrows and orders an in-memory result set.
type Filter struct {
	Category string // "" or "all" matches every category
	Term     string // case-insensitive substring of the title
	MinPrice decimal.Decimal
	MaxPrice *decimal.Decimal // nil means unbounded
	Sort     SortOrder
}

// BrowseQuery is bound from the query string of GET /listings.
type BrowseQuery struct {
	common.PaginationQuery
	Category string `form:"category"`
	Search   string `form:"search"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
	Sort     string `form:"sort" binding:"omitempty,oneof=newest oldest price_low_high price_high_low"`
}

// ToFilter validates the raw query values.
func (q BrowseQuery) ToFilter() (Filter, error) {
	f := Filter{Term: q.Search, Sort: SortOrder(q.Sort), MinPrice: decimal.Zero}

	if c := strings.TrimSpace(q.Category); c != "" && !strings.EqualFold(c, "all") {
		cat, ok := ParseCategory(c)
		if !ok {
			return Filter{}, common.ErrBadRequest.WithDetails("Unknown category: " + c)
		}
		f.Category = string(cat)
	}
	if q.MinPrice != "" {
		min, err := ParsePrice(q.MinPrice)
		if err != nil {
			return Filter{}, err
		}
		f.MinPrice = min
	}
	if q.MaxPrice != "" {
		max, err := ParsePrice(q.MaxPrice)
		if err != nil {
			return Filter{}, err
		}
		f.MaxPrice = &max
	}
	if f.MaxPrice != nil && f.MaxPrice.LessThan(f.MinPrice) {
		return Filter{}, common.ErrBadRequest.WithDetails("max_price must not be below min_price.")
	}
	return f, nil
}

// Matches reports whether l passes the category, term and price predicates.
func (f Filter) Matches(l *Listing) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, "all") && !strings.EqualFold(string(l.Category), f.Category) {
		return false
	}
	if term := strings.TrimSpace(f.Term); term != "" &&
		!strings.Contains(strings.ToLower(l.Title), strings.ToLower(term)) {
		return false
	}
	if l.Price.LessThan(f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && l.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// ApplyFilter returns the listings matching f in f.Sort order. An empty Sort keeps the input order.
// The input slice is not modified.
func ApplyFilter(items []Listing, f Filter) []Listing {
	out := make([]Listing, 0, len(items))
	for i := range items {
		if f.Matches(&items[i]) {
			out = append(out, items[i])
		}
	}

	var less func(a, b *Listing) bool
	switch f.Sort {
	case SortOldest:
		less = func(a, b *Listing) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortPriceLowHigh:
		less = func(a, b *Listing) bool { return a.Price.LessThan(b.Price) }
	case SortPriceHighLow:
		less = func(a, b *Listing) bool { return a.Price.GreaterThan(b.Price) }
	case SortNewest:
		less = func(a, b *Listing) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

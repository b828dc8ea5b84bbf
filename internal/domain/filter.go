package domain

import (
	"math"
	"sort"
	"strings"
)

type SortField string

const (
	SortByName      SortField = "name"
	SortByPrice     SortField = "price"
	SortByQuantity  SortField = "quantity"
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// sortColumns maps the public sort keys to snake_case storage columns.
var sortColumns = map[SortField]string{
	SortByName:      "name",
	SortByPrice:     "price",
	SortByQuantity:  "quantity",
	SortByCreatedAt: "created_at",
	SortByUpdatedAt: "updated_at",
}

// ProductFilter describes one page of the product listing.
type ProductFilter struct {
	Search      string
	MinPrice    *float64
	MaxPrice    *float64
	MinQuantity *int
	MaxQuantity *int
	SortBy      SortField
	SortOrder   SortOrder
	Page        int
	Limit       int
}

// Normalize applies defaults: unknown sort keys fall back to createdAt,
// anything but "asc" sorts descending, page is at least 1 and limit is
// clamped to [1, MaxLimit]. Pages too large to address are clamped so the
// offset never overflows.
func (f ProductFilter) Normalize() ProductFilter {
	f.Search = strings.TrimSpace(f.Search)
	if _, ok := sortColumns[f.SortBy]; !ok {
		f.SortBy = SortByCreatedAt
	}
	if f.SortOrder != SortAsc {
		f.SortOrder = SortDesc
	}
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	// Keep Offset within int.
	if maxPage := math.MaxInt/f.Limit + 1; f.Page > maxPage {
		f.Page = maxPage
	}
	return f
}

func (f ProductFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// SortColumn is the storage column for SortBy, always one of a fixed set.
func (f ProductFilter) SortColumn() string {
	if col, ok := sortColumns[f.SortBy]; ok {
		return col
	}
	return sortColumns[SortByCreatedAt]
}

// Matches evaluates the filter in process, for drivers without a query
// language. Search is a case-insensitive substring match on name or
// description; ranges are inclusive.
func (f ProductFilter) Matches(p Product) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		inName := strings.Contains(strings.ToLower(p.Name), needle)
		inDescription := p.Description != nil && strings.Contains(strings.ToLower(*p.Description), needle)
		if !inName && !inDescription {
			return false
		}
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.MinQuantity != nil && p.Quantity < *f.MinQuantity {
		return false
	}
	if f.MaxQuantity != nil && p.Quantity > *f.MaxQuantity {
		return false
	}
	return true
}

// SortProducts orders products in place. Ties are broken by id so paging is
// stable.
func SortProducts(products []Product, by SortField, order SortOrder) {
	less := func(a, b Product) int {
		switch by {
		case SortByName:
			return strings.Compare(a.Name, b.Name)
		case SortByPrice:
			return compareFloat(a.Price, b.Price)
		case SortByQuantity:
			return a.Quantity - b.Quantity
		case SortByUpdatedAt:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	sort.SliceStable(products, func(i, j int) bool {
		c := less(products[i], products[j])
		if c == 0 {
			return products[i].ID < products[j].ID
		}
		if order == SortAsc {
			return c < 0
		}
		return c > 0
	})
}

// FilterPage runs the whole listing in process: match, sort, then slice out
// the requested page. It returns the page and the total match count.
func FilterPage(all []Product, f ProductFilter) ([]Product, int64) {
	f = f.Normalize()

	matched := make([]Product, 0, len(all))
	for _, p := range all {
		if f.Matches(p) {
			matched = append(matched, p)
		}
	}
	SortProducts(matched, f.SortBy, f.SortOrder)

	total := int64(len(matched))
	start := f.Offset()
	if start < 0 || start >= len(matched) {
		return []Product{}, total
	}
	end := start + f.Limit
	if end < start || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

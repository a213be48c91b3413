package vecindex

import "strings"

// Filter restricts search candidates by catalog attributes. All set
// conditions must hold (conjunctive); zero values mean unconstrained.
type Filter struct {
	Categories  []string
	Brands      []string
	InStockOnly bool
	PriceMin    *float64
	PriceMax    *float64
}

func (f *Filter) matches(m Meta) bool {
	if f == nil {
		return true
	}
	if len(f.Categories) > 0 && !containsFold(f.Categories, m.Category) {
		return false
	}
	if len(f.Brands) > 0 && !containsFold(f.Brands, m.Brand) {
		return false
	}
	if f.InStockOnly && !m.InStock {
		return false
	}
	if f.PriceMin != nil && m.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && m.Price > *f.PriceMax {
		return false
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

package content

import (
	"github.com/tkdojang/dojang/internal/domain/belt"
)

// Eligible returns the items a learner at rank may study: every item whose
// required rank the learner has reached. The result preserves input order
// and may be empty.
func Eligible(rank belt.Rank, items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if IsEligible(rank, it) {
			out = append(out, it)
		}
	}
	return out
}

// IsEligible reports whether a single item is open to rank.
func IsEligible(rank belt.Rank, it Item) bool {
	return belt.IsAtLeastAsAdvanced(rank, it.RequiredRank)
}

// Filter narrows an item list by kind and category. Zero fields match all.
type Filter struct {
	Kind     Kind
	Category string
}

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return f.Kind == "" && f.Category == ""
}

// Matches reports whether it passes the filter.
func (f Filter) Matches(it Item) bool {
	if f.Kind != "" && it.Kind != f.Kind {
		return false
	}
	if f.Category != "" && it.Category != f.Category {
		return false
	}
	return true
}

// Apply returns the items that pass the filter.
func (f Filter) Apply(items []Item) []Item {
	if f.IsEmpty() {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if f.Matches(it) {
			out = append(out, it)
		}
	}
	return out
}

// EligibleFiltered is Eligible followed by f.
func EligibleFiltered(rank belt.Rank, items []Item, f Filter) []Item {
	return f.Apply(Eligible(rank, items))
}

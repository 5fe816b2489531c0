// Package belt defines the Taekwondo rank ladder and the single ordering
// relation every eligibility and progression decision goes through.
//
// Ranks are compared by SortOrder only: a lower value is more advanced.
// Names, short names and colors are display data and carry no ordering.
package belt

import (
	"fmt"
	"sort"

	"github.com/tkdojang/dojang/internal/domain/shared"
)

// Rank is an immutable belt rank reference.
type Rank struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	ShortName      string `json:"short_name" yaml:"short_name"`
	Color          string `json:"color" yaml:"color"`
	SortOrder      int    `json:"sort_order" yaml:"sort_order"`
	IsBeginnerTier bool   `json:"is_beginner_tier" yaml:"beginner"`
	IsDan          bool   `json:"is_dan" yaml:"dan"`
}

// IsZero reports whether r is the zero value.
func (r Rank) IsZero() bool {
	return r.ID == "" && r.SortOrder == 0
}

// String returns the display name.
func (r Rank) String() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// Validate checks the fields a catalog entry needs.
func (r Rank) Validate() error {
	if r.ID == "" || r.Name == "" {
		return shared.ErrInvalidBeltRecord.Detailf("id=%q name=%q", r.ID, r.Name)
	}
	if r.SortOrder <= 0 {
		return shared.WrapError("belt", "Validate", shared.ErrValueOutOfRange,
			"sort order must be positive", fmt.Errorf("%s: %d", r.ID, r.SortOrder))
	}
	return nil
}

// IsAtLeastAsAdvanced reports whether a is at least as advanced as b.
// This is the only rank comparison in the system.
func IsAtLeastAsAdvanced(a, b Rank) bool {
	return a.SortOrder <= b.SortOrder
}

// Compare orders ranks from most advanced to most junior.
// It returns -1 when a is more advanced, 1 when b is, 0 when equal.
func Compare(a, b Rank) int {
	aFirst := IsAtLeastAsAdvanced(a, b)
	bFirst := IsAtLeastAsAdvanced(b, a)
	switch {
	case aFirst && bFirst:
		return 0
	case aFirst:
		return -1
	default:
		return 1
	}
}

// SortJuniorFirst sorts ranks in place, most junior first.
func SortJuniorFirst(ranks []Rank) {
	sort.SliceStable(ranks, func(i, j int) bool {
		return Compare(ranks[i], ranks[j]) > 0
	})
}

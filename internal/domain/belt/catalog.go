package belt

import (
	"context"

	"github.com/tkdojang/dojang/internal/domain/shared"
)

// Catalog is an immutable, validated set of ranks with unique IDs and
// unique sort orders.
type Catalog struct {
	ordered []Rank // most junior first
	byID    map[string]int
}

// NewCatalog validates ranks and builds a Catalog.
func NewCatalog(ranks []Rank) (*Catalog, error) {
	if len(ranks) == 0 {
		return nil, shared.ErrEmptyBeltCatalog
	}

	ordered := make([]Rank, len(ranks))
	copy(ordered, ranks)

	ids := make(map[string]struct{}, len(ordered))
	orders := make(map[int]string, len(ordered))
	for _, r := range ordered {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := ids[r.ID]; dup {
			return nil, shared.ErrDuplicateBeltID.Detailf("id %q", r.ID)
		}
		if other, dup := orders[r.SortOrder]; dup {
			return nil, shared.ErrDuplicateSortKey.Detailf("%q and %q share %d", other, r.ID, r.SortOrder)
		}
		ids[r.ID] = struct{}{}
		orders[r.SortOrder] = r.ID
	}

	SortJuniorFirst(ordered)

	byID := make(map[string]int, len(ordered))
	for i, r := range ordered {
		byID[r.ID] = i
	}

	return &Catalog{ordered: ordered, byID: byID}, nil
}

// MustCatalog is NewCatalog that panics. Used for built-in data.
func MustCatalog(ranks []Rank) *Catalog {
	c, err := NewCatalog(ranks)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of ranks.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// ByID returns the rank with the given ID.
func (c *Catalog) ByID(id string) (Rank, error) {
	i, ok := c.byID[id]
	if !ok {
		return Rank{}, shared.ErrBeltNotFound.Detailf("id %q", id)
	}
	return c.ordered[i], nil
}

// Ordered returns a copy of all ranks, most junior first.
func (c *Catalog) Ordered() []Rank {
	out := make([]Rank, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// MostJunior returns the entry rank.
func (c *Catalog) MostJunior() Rank {
	return c.ordered[0]
}

// MostAdvanced returns the top rank.
func (c *Catalog) MostAdvanced() Rank {
	return c.ordered[len(c.ordered)-1]
}

// Next returns the next more advanced rank after r.
func (c *Catalog) Next(r Rank) (Rank, bool) {
	i, ok := c.byID[r.ID]
	if !ok || i+1 >= len(c.ordered) {
		return Rank{}, false
	}
	return c.ordered[i+1], true
}

// Repository persists the rank ladder so profiles and content can
// reference ranks by ID.
type Repository interface {
	// Sync upserts every rank. Ranks missing from the input are left alone
	// so existing references stay valid.
	Sync(ctx context.Context, ranks []Rank) error

	// List returns stored ranks, most junior first.
	List(ctx context.Context) ([]Rank, error)

	// GetByID returns a stored rank.
	GetByID(ctx context.Context, id string) (Rank, error)
}

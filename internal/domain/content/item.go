// Package content models curriculum items and the rank-based eligibility
// filter applied to them.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

// Kind is the family an item belongs to.
type Kind string

const (
	KindTerminology  Kind = "terminology"
	KindPattern      Kind = "pattern"
	KindStepSparring Kind = "step_sparring"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindTerminology, KindPattern, KindStepSparring:
		return true
	}
	return false
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", shared.ErrInvalidContentKind.Detailf("%q", s)
	}
	return k, nil
}

// Item is an immutable curriculum entry: a terminology term, a pattern or
// a step-sparring sequence.
type Item struct {
	ID           shared.ContentID `json:"id"`
	Kind         Kind             `json:"kind"`
	Category     string           `json:"category"`
	Term         string           `json:"term"`
	Romanized    string           `json:"romanized,omitempty"`
	Hangul       string           `json:"hangul,omitempty"`
	Definition   string           `json:"definition,omitempty"`
	RequiredRank belt.Rank        `json:"required_rank"`
	Moves        int              `json:"moves,omitempty"`
	Source       string           `json:"source,omitempty"`
}

// Validate checks an item before it joins a catalog.
func (i Item) Validate() error {
	if !i.ID.IsValid() {
		return shared.WrapError("content", "Validate", shared.ErrInvalidID,
			"invalid content id", fmt.Errorf("%q", i.ID))
	}
	if !i.Kind.IsValid() {
		return shared.ErrInvalidContentKind.Detailf("%s: %q", i.ID, i.Kind)
	}
	if i.Term == "" {
		return shared.WrapError("content", "Validate", shared.ErrEmptyValue,
			"term is required", fmt.Errorf("%s", i.ID))
	}
	if i.RequiredRank.IsZero() {
		return shared.WrapError("content", "Validate", shared.ErrInvalidInput,
			"required rank is missing", fmt.Errorf("%s", i.ID))
	}
	return nil
}

// Catalog is an immutable snapshot of all loaded items.
type Catalog struct {
	items   []Item
	byID    map[shared.ContentID]int
	version string
}

// NewCatalog validates items and builds a snapshot. Input order is kept.
func NewCatalog(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		byID:  make(map[shared.ContentID]int, len(items)),
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[it.ID]; dup {
			return nil, shared.ErrDuplicateContentID.Detailf("%s", it.ID)
		}
		c.byID[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	c.version = fingerprint(c.items)
	return c, nil
}

// Items returns a copy of all items.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the item count.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Version identifies the catalog contents. Two catalogs share a version only
// when their items are identical and in the same order.
func (c *Catalog) Version() string {
	return c.version
}

// Get returns an item by ID.
func (c *Catalog) Get(id shared.ContentID) (Item, error) {
	i, ok := c.byID[id]
	if !ok {
		return Item{}, shared.ErrContentNotFound.Detailf("%s", id)
	}
	return c.items[i], nil
}

// Lookup returns items for the given IDs in the given order, skipping IDs
// that are not in the catalog.
func (c *Catalog) Lookup(ids []shared.ContentID) []Item {
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		if i, ok := c.byID[id]; ok {
			out = append(out, c.items[i])
		}
	}
	return out
}

// Categories returns the distinct categories of a kind, sorted.
func (c *Catalog) Categories(kind Kind) []string {
	seen := make(map[string]struct{})
	for _, it := range c.items {
		if kind != "" && it.Kind != kind {
			continue
		}
		seen[it.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// fingerprint hashes every field of every item, so any edit that can change
// a filter result changes the version.
func fingerprint(items []Item) string {
	h := fnv.New64a()
	enc := json.NewEncoder(h)
	for _, it := range items {
		// Item holds only JSON-safe values; Encode cannot fail on a hash.
		_ = enc.Encode(it)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Source supplies the current catalog snapshot.
type Source interface {
	Snapshot(ctx context.Context) (*Catalog, error)
}

package query

import (
	"context"
	"fmt"

	"github.com/tkdojang/dojang/internal/domain/content"
	"github.com/tkdojang/dojang/internal/domain/store"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ELIGIBLE CONTENT QUERY
// Returns the cumulative curriculum open to a profile's current belt.
// ══════════════════════════════════════════════════════════════════════════════

// EligibleContentQuery selects a profile and an optional narrowing filter.
type EligibleContentQuery struct {
	ProfileID string
	Kind      string
	Category  string
}

// filter parses the requested kind and category.
func (q EligibleContentQuery) filter() (content.Filter, error) {
	f := content.Filter{Category: q.Category}
	if q.Kind != "" {
		k, err := content.ParseKind(q.Kind)
		if err != nil {
			return f, err
		}
		f.Kind = k
	}
	return f, nil
}

// EligibleContentResult is the filtered curriculum.
type EligibleContentResult struct {
	ProfileID      string           `json:"profile_id"`
	Belt           BeltDTO          `json:"belt"`
	CatalogVersion string           `json:"catalog_version"`
	Items          []ContentItemDTO `json:"items"`

	// Categories lists every category of the requested kind in the
	// catalog, eligible or not, for building filter menus.
	Categories []string `json:"categories"`
	Cached     bool     `json:"cached"`
}

// EligibleContentHandler handles the EligibleContentQuery.
type EligibleContentHandler struct {
	store  store.Store
	source content.Source
	cache  content.Cache // optional
}

// NewEligibleContentHandler creates a new handler. cache may be nil.
func NewEligibleContentHandler(st store.Store, source content.Source, cache content.Cache) *EligibleContentHandler {
	return &EligibleContentHandler{store: st, source: source, cache: cache}
}

// Handle loads the profile, then filters the current catalog snapshot by
// its belt. Cache failures fall through to computation.
func (h *EligibleContentHandler) Handle(ctx context.Context, q EligibleContentQuery) (*EligibleContentResult, error) {
	f, err := q.filter()
	if err != nil {
		return nil, fmt.Errorf("eligible_content: validation failed: %w", err)
	}
	p, err := h.store.Profiles().GetByID(ctx, q.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("eligible_content: %w", err)
	}
	cat, err := h.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("eligible_content: load catalog: %w", err)
	}

	result := &EligibleContentResult{
		ProfileID:      p.ID,
		Belt:           NewBeltDTO(p.Rank),
		CatalogVersion: cat.Version(),
		Categories:     cat.Categories(f.Kind),
	}
	key := content.CacheKey{Version: cat.Version(), SortOrder: p.Rank.SortOrder, Filter: f}

	items, hit := h.fromCache(ctx, cat, key)
	if !hit {
		items = content.EligibleFiltered(p.Rank, cat.Items(), f)
		h.toCache(ctx, key, items)
	}
	result.Cached = hit
	result.Items = make([]ContentItemDTO, len(items))
	for i, it := range items {
		result.Items[i] = NewContentItemDTO(it)
	}
	return result, nil
}

func (h *EligibleContentHandler) fromCache(ctx context.Context, cat *content.Catalog, key content.CacheKey) ([]content.Item, bool) {
	if h.cache == nil {
		return nil, false
	}
	ids, ok, err := h.cache.GetEligible(ctx, key)
	if err != nil {
		logger.FromContext(ctx).Warn("eligible content cache read failed", logger.Err(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	items := cat.Lookup(ids)
	if len(items) != len(ids) {
		return nil, false
	}
	return items, true
}

func (h *EligibleContentHandler) toCache(ctx context.Context, key content.CacheKey, items []content.Item) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetEligible(ctx, key, content.IDs(items)); err != nil {
		logger.FromContext(ctx).Warn("eligible content cache write failed", logger.Err(err))
	}
}

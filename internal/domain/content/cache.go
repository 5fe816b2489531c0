package content

import (
	"context"
	"strconv"
	"strings"

	"github.com/tkdojang/dojang/internal/domain/shared"
)

// CacheKey identifies one eligibility result. Results depend only on the
// catalog version, the rank's sort order and the filter.
type CacheKey struct {
	Version   string
	SortOrder int
	Filter    Filter
}

// String renders the key as colon-separated segments.
func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString(k.Version)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(k.SortOrder))
	b.WriteByte(':')
	b.WriteString(string(k.Filter.Kind))
	b.WriteByte(':')
	b.WriteString(k.Filter.Category)
	return b.String()
}

// Cache memoizes eligibility results as ordered item IDs.
type Cache interface {
	GetEligible(ctx context.Context, key CacheKey) (ids []shared.ContentID, ok bool, err error)
	SetEligible(ctx context.Context, key CacheKey, ids []shared.ContentID) error
}

// IDs extracts item IDs in order.
func IDs(items []Item) []shared.ContentID {
	out := make([]shared.ContentID, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

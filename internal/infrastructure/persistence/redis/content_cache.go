package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tkdojang/dojang/internal/domain/content"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/pkg/circuitbreaker"
)

// ContentCache memoizes eligibility results for every process sharing the
// Redis server.
type ContentCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.Breaker
}

var _ content.Cache = (*ContentCache)(nil)

// NewContentCache creates a ContentCache. A non-positive ttl selects
// TTLEligibleContent.
func NewContentCache(cache *Cache, ttl time.Duration) *ContentCache {
	if ttl <= 0 {
		ttl = TTLEligibleContent
	}
	return &ContentCache{cache: cache, ttl: ttl}
}

// WithBreaker guards every read and write with cb. While the circuit is
// open, reads are misses and writes are dropped.
func (c *ContentCache) WithBreaker(cb *circuitbreaker.Breaker) *ContentCache {
	c.breaker = cb
	return c
}

// guard runs fn through the breaker. It reports false when the circuit
// rejected the call.
func (c *ContentCache) guard(ctx context.Context, fn func(context.Context) error) (bool, error) {
	if c.breaker == nil {
		return true, fn(ctx)
	}
	err := c.breaker.Execute(ctx, fn)
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return false, nil
	}
	return true, err
}

func (c *ContentCache) key(k content.CacheKey) string {
	return c.cache.Key(PrefixContent + k.String())
}

// GetEligible implements content.Cache.
func (c *ContentCache) GetEligible(ctx context.Context, key content.CacheKey) ([]shared.ContentID, bool, error) {
	var (
		ids []shared.ContentID
		hit bool
	)
	allowed, err := c.guard(ctx, func(ctx context.Context) error {
		err := c.cache.Get(ctx, c.key(key), &ids)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		hit = err == nil
		return err
	})
	switch {
	case err != nil:
		return nil, false, fmt.Errorf("content cache get: %w", err)
	case !allowed || !hit:
		return nil, false, nil
	}
	if ids == nil {
		ids = []shared.ContentID{}
	}
	return ids, true, nil
}

// SetEligible implements content.Cache. Empty results are cached too.
func (c *ContentCache) SetEligible(ctx context.Context, key content.CacheKey, ids []shared.ContentID) error {
	if ids == nil {
		ids = []shared.ContentID{}
	}
	_, err := c.guard(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, c.key(key), ids, c.ttl)
	})
	if err != nil {
		return fmt.Errorf("content cache set: %w", err)
	}
	return nil
}

// Invalidate drops every cached result of one catalog version, or of all
// versions when version is empty.
func (c *ContentCache) Invalidate(ctx context.Context, version string) error {
	pattern := c.cache.Key(PrefixContent + "*")
	if version != "" {
		pattern = c.cache.Key(PrefixContent + version + ":*")
	}
	return c.cache.DeleteByPattern(ctx, pattern)
}

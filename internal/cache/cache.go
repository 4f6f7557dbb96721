// Package cache deduplicates lookups within a run: every distinct key hits
// the source chain at most once, no matter how many rows carry it or how many
// goroutines ask concurrently.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
)

// ResolveFunc produces the result for a key on a cache miss.
type ResolveFunc func(ctx context.Context, key model.LookupKey) model.LookupResult

// Cache memoizes lookup results by key. Negative results are cached the same
// as positive ones; "not found" is an answer, not a failure.
type Cache struct {
	fn ResolveFunc

	group   singleflight.Group
	mu      sync.RWMutex
	results map[model.LookupKey]model.LookupResult

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache over fn.
func New(fn ResolveFunc) *Cache {
	return &Cache{
		fn:      fn,
		results: make(map[model.LookupKey]model.LookupResult),
	}
}

// Resolve returns the cached result for key, resolving it first if needed.
// Concurrent misses on the same key share a single in-flight resolution.
// A NoKey key never reaches the resolver and always comes back empty.
func (c *Cache) Resolve(ctx context.Context, key model.LookupKey) model.LookupResult {
	if key.IsNone() {
		return model.LookupResult{}
	}

	c.mu.RLock()
	res, ok := c.results[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return res
	}

	v, _, _ := c.group.Do(string(key), func() (any, error) {
		// Recheck under the group: a concurrent caller may have stored the
		// result between the read above and this Do.
		c.mu.RLock()
		res, ok := c.results[key]
		c.mu.RUnlock()
		if ok {
			return res, nil
		}

		c.misses.Add(1)
		res = c.fn(ctx, key)

		c.mu.Lock()
		c.results[key] = res
		c.mu.Unlock()
		return res, nil
	})

	return v.(model.LookupResult)
}

// Stats reports hit and miss counts. Misses equal the number of times the
// resolver actually ran.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

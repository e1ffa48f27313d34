package submodule

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// TreeCache wraps a TreeStore with an LRU of already-loaded trees.
// Sibling recursive diffs queued by the tree-diff engine (§4.8 step 7)
// frequently share an ancestor tree reached through different
// submodule paths; without a cache every fan-out worker reloads it
// independently. The stores themselves are read-only during
// validation (§5), so caching introduces no coherency concerns.
type TreeCache struct {
	inner TreeStore
	cache *lru.Cache

	mu sync.Mutex
}

// NewTreeCache builds a TreeCache of the given capacity wrapping
// inner. size must be positive; internal/config.Submodule.TreeCacheSize
// is the usual source.
func NewTreeCache(inner TreeStore, size int) (*TreeCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("submodule: tree cache: %w", err)
	}
	return &TreeCache{inner: inner, cache: cache}, nil
}

// LoadTree returns the cached tree for id, loading and caching it via
// the wrapped TreeStore on a miss.
func (c *TreeCache) LoadTree(ctx context.Context, id TreeID) (Tree, error) {
	c.mu.Lock()
	if v, ok := c.cache.Get(id); ok {
		c.mu.Unlock()
		return v.(Tree), nil
	}
	c.mu.Unlock()

	tree, err := c.inner.LoadTree(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache.Add(id, tree)
	c.mu.Unlock()

	return tree, nil
}

// Package query implements the two supplemental read-only operations
// SPEC_FULL.md §5 adds on top of an already-synced database: resolving the
// n-th first-parent ancestor of a commit via the skip-list, and listing the
// commits that touched a given file path. Neither participates in the sync
// pass; both exist to give the Ancestor Skip-List Builder and the File &
// Change Store a visible consumer.
package query

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"go.bushi.dev/index/store"
)

// Cache wraps a *store.Store with an ancestor-answer cache, mirroring the
// commitCache pattern in knotserver/git/git.go: ancestor answers never
// change once computed (a commit's history before it is immutable), so a
// resolved answer can be cached indefinitely until the process exits.
type Cache struct {
	store *store.Store
	cache *ristretto.Cache
}

// NewCache wraps store with a bounded in-memory ancestor cache.
func NewCache(st *store.Store) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ancestor cache: %w", err)
	}
	return &Cache{store: st, cache: c}, nil
}

type ancestorKey struct {
	repositoryID int64
	hash         string
	n            int64
}

// NthAncestor resolves the n-th first-parent ancestor of hash, returning
// ("", false, nil) if the commit has fewer than n ancestors.
func (c *Cache) NthAncestor(ctx context.Context, repositoryID int64, hash string, n int64) (string, bool, error) {
	key := ancestorKey{repositoryID, hash, n}
	if cached, ok := c.cache.Get(key); ok {
		result := cached.(string)
		return result, result != "", nil
	}

	ancestor, found, err := c.store.NthAncestorHash(ctx, repositoryID, hash, n)
	if err != nil {
		return "", false, err
	}
	c.cache.Set(key, ancestor, 1)
	return ancestor, found, nil
}

// FileLog lists up to limit commits that touched path, newest first. This
// doesn't benefit from caching the way ancestor lookups do (the same path
// query is rarely repeated hot in a loop) so it reads straight through.
func (c *Cache) FileLog(ctx context.Context, repositoryID int64, path string, limit int64) ([]store.FileLogEntry, error) {
	return c.store.FileLog(ctx, repositoryID, path, limit)
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	c.cache.Close()
}

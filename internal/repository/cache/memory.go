package cache

import (
	"context"
	"fmt"

	"github.com/maypok86/otter/v2"
)

// MemoryCache is the bounded in-process tier.
type MemoryCache struct {
	m *otter.Cache[Key, Record]
}

var _ TileCache = (*MemoryCache)(nil)

func NewMemoryCache(capacity int) (*MemoryCache, error) {
	m, err := otter.New(&otter.Options[Key, Record]{
		MaximumSize: capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &MemoryCache{m: m}, nil
}

func (c *MemoryCache) Get(k Key) (Record, bool) {
	return c.m.GetIfPresent(k)
}

func (c *MemoryCache) Set(k Key, r Record) {
	c.m.Set(k, r)
}

func (c *MemoryCache) Lookup(_ context.Context, k Key) (Record, bool, error) {
	r, ok := c.Get(k)
	return r, ok, nil
}

func (c *MemoryCache) Insert(_ context.Context, k Key, r Record) error {
	c.Set(k, r)
	return nil
}

// InvalidateIf removes the matching entries present when it is called and
// reports how many were removed.
func (c *MemoryCache) InvalidateIf(p Predicate) int {
	var matched []Key
	for k := range c.m.Keys() {
		if p(k) {
			matched = append(matched, k)
		}
	}

	n := 0
	for _, k := range matched {
		if _, ok := c.m.Invalidate(k); ok {
			n++
		}
	}
	return n
}

func (c *MemoryCache) Len() int {
	return c.m.EstimatedSize()
}

package cache

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nahlund/backend/tileserver/pkg/logger"
	"github.com/nahlund/backend/tileserver/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// MultiLayerCache puts the memory tier in front of the disk tier and makes
// sure a key is generated at most once at a time.
type MultiLayerCache struct {
	memory *MemoryCache
	disk   *DiskCache
	flight singleflight.Group
	logger logger.Logger
}

func NewMultiLayerCache(memory *MemoryCache, disk *DiskCache, l logger.Logger) *MultiLayerCache {
	return &MultiLayerCache{
		memory: memory,
		disk:   disk,
		logger: l,
	}
}

// GetOrCompute returns the cached bytes for k, calling gen on a miss.
// Concurrent callers for the same key share one call of gen and its result
// or error. gen runs on a context that is not canceled with ctx, so a caller
// that gives up does not abort the work for the others; the result is still
// cached. Each caller gets its own copy of the bytes.
func (c *MultiLayerCache) GetOrCompute(ctx context.Context, k Key, gen Generator) ([]byte, error) {
	if r, ok := c.memory.Get(k); ok {
		metrics.CacheHits.WithLabelValues("memory").Inc()
		return bytes.Clone(r.Bytes), nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(k.String(), func() (any, error) {
		return c.load(flightCtx, k, gen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return bytes.Clone(res.Val.(Record).Bytes), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *MultiLayerCache) load(ctx context.Context, k Key, gen Generator) (r Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tile generation for %s panicked: %v", k, p)
		}
	}()

	// a flight that finished just before this one started may have filled it
	if r, ok := c.memory.Get(k); ok {
		metrics.CacheHits.WithLabelValues("memory").Inc()
		return r, nil
	}

	if r, ok := c.lookupDisk(ctx, k); ok {
		return r, nil
	}

	metrics.CacheMisses.Inc()

	data, err := gen(ctx)
	if err != nil {
		return Record{}, err
	}

	r = NewRecord(data)
	c.store(ctx, k, r)

	return r, nil
}

func (c *MultiLayerCache) lookupDisk(ctx context.Context, k Key) (Record, bool) {
	r, ok, err := c.disk.Lookup(ctx, k)
	if err != nil {
		c.logger.Warn("disk cache lookup failed", "key", k.String(), "error", err)
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}

	metrics.CacheHits.WithLabelValues("disk").Inc()
	c.memory.Set(k, r)
	return r, true
}

// store writes r to disk, then memory. A disk failure is logged and does not
// affect the caller, who already holds correct bytes.
func (c *MultiLayerCache) store(ctx context.Context, k Key, r Record) {
	if err := c.disk.Insert(ctx, k, r); err != nil {
		metrics.DiskWriteErrors.Inc()
		c.logger.Error("failed to persist tile", "key", k.String(), "error", err)
	}
	c.memory.Set(k, r)
	metrics.CacheStores.Inc()
}

// Get looks k up in memory, then on disk, without generating. The returned
// bytes are a copy.
func (c *MultiLayerCache) Get(ctx context.Context, k Key) ([]byte, bool) {
	if r, ok := c.memory.Get(k); ok {
		metrics.CacheHits.WithLabelValues("memory").Inc()
		return bytes.Clone(r.Bytes), true
	}
	if r, ok := c.lookupDisk(ctx, k); ok {
		return bytes.Clone(r.Bytes), true
	}
	metrics.CacheMisses.Inc()
	return nil, false
}

// Put stores data for k in both tiers, replacing any previous record.
func (c *MultiLayerCache) Put(ctx context.Context, k Key, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("refusing to cache empty payload for %s", k)
	}
	c.store(ctx, k, NewRecord(bytes.Clone(data)))
	return nil
}

// Evict removes every entry of the given kind from both tiers.
func (c *MultiLayerCache) Evict(kind Kind) (memory, disk int) {
	return c.InvalidateIf(OfKind(kind))
}

// InvalidateIf removes matching entries from memory, then from disk. Each
// tier only sees the keys it holds at that moment; results of flights still
// running are installed afterwards and stay until invalidated again.
func (c *MultiLayerCache) InvalidateIf(p Predicate) (memory, disk int) {
	memory = c.memory.InvalidateIf(p)
	disk = c.disk.InvalidateIf(p)

	metrics.CacheInvalidations.WithLabelValues("memory").Add(float64(memory))
	metrics.CacheInvalidations.WithLabelValues("disk").Add(float64(disk))

	c.logger.Info("cache invalidated", "memory", memory, "disk", disk)

	return memory, disk
}

// Stats reports the number of entries per tier.
type Stats struct {
	MemoryEntries int `json:"memory_entries"`
	DiskEntries   int `json:"disk_entries"`
}

func (c *MultiLayerCache) Stats() Stats {
	return Stats{
		MemoryEntries: c.memory.Len(),
		DiskEntries:   c.disk.Len(),
	}
}

func (c *MultiLayerCache) Close() error {
	return c.disk.Close()
}

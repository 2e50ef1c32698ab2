package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nahlund/backend/tileserver/internal/tile"
	"github.com/nahlund/backend/tileserver/pkg/logger"
	"github.com/nahlund/backend/tileserver/pkg/metrics"
)

const (
	recordExt = ".bin"
	tmpExt    = ".tmp"
)

// DiskCache persists records as one file per key under
// {basePath}/{kind}/{x}_{y}_{z}.bin. The LRU index is the source of truth for
// membership; files are rebuilt into the index at startup.
type DiskCache struct {
	basePath string
	compress bool
	logger   logger.Logger

	index *lru.Cache[Key, string]

	// orders committing a file and indexing it against deleting an evicted
	// file; it must not be held by onEvict, which Add calls synchronously
	fileMu sync.Mutex

	// guards closed and pending.Add
	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

var _ TileCache = (*DiskCache)(nil)

type DiskOption func(*DiskCache)

func WithCompression(enabled bool) DiskOption {
	return func(c *DiskCache) {
		c.compress = enabled
	}
}

func WithDiskLogger(l logger.Logger) DiskOption {
	return func(c *DiskCache) {
		c.logger = l
	}
}

func NewDiskCache(basePath string, capacity int, opts ...DiskOption) (*DiskCache, error) {
	c := &DiskCache{
		basePath: basePath,
		logger:   logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	index, err := lru.NewWithEvict[Key, string](capacity, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache index: %w", err)
	}
	c.index = index

	for _, kind := range Kinds {
		if err := os.MkdirAll(c.kindDir(kind), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	if err := c.rebuildIndex(); err != nil {
		return nil, err
	}

	c.logger.Info("disk cache initialized", "path", basePath, "capacity", capacity, "entries", c.index.Len())

	return c, nil
}

type indexedFile struct {
	key     Key
	path    string
	modTime time.Time
}

// rebuildIndex scans every kind directory and indexes the files oldest first
// so that trimming to capacity keeps the most recent tiles.
func (c *DiskCache) rebuildIndex() error {
	var files []indexedFile

	for _, kind := range Kinds {
		dir := c.kindDir(kind)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to scan cache directory %s: %w", dir, err)
		}

		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			path := filepath.Join(dir, name)

			if strings.HasSuffix(name, tmpExt) {
				// interrupted write
				_ = os.Remove(path)
				continue
			}

			stem, ok := strings.CutSuffix(name, recordExt)
			if !ok {
				continue
			}
			id, err := tile.ParseID(stem)
			if err != nil {
				c.logger.Debug("skipping unrecognized cache file", "path", path)
				continue
			}

			info, err := e.Info()
			if err != nil {
				continue
			}
			files = append(files, indexedFile{
				key:     Key{Kind: kind, Tile: id},
				path:    path,
				modTime: info.ModTime(),
			})
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		c.index.Add(f.key, f.path)
	}

	return nil
}

func (c *DiskCache) kindDir(kind Kind) string {
	return filepath.Join(c.basePath, kind.String())
}

// pathFor derives the file path for k. It is stable across restarts.
func (c *DiskCache) pathFor(k Key) string {
	return filepath.Join(c.kindDir(k.Kind), k.Tile.String()+recordExt)
}

func (c *DiskCache) Lookup(ctx context.Context, k Key) (Record, bool, error) {
	path, ok := c.index.Get(k)
	if !ok {
		return Record{}, false, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("disk cache read failed, treating as miss", "key", k.String(), "error", err)
		c.index.Remove(k)
		return Record{}, false, nil
	}

	r, err := DecodeRecord(content)
	if err != nil {
		c.logger.Warn("disk cache record unreadable, treating as miss", "key", k.String(), "error", err)
		c.index.Remove(k)
		return Record{}, false, nil
	}

	return r, true, nil
}

func (c *DiskCache) Insert(ctx context.Context, k Key, r Record) error {
	path := c.pathFor(k)

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*"+tmpExt)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(EncodeRecord(r, c.compress))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	c.fileMu.Lock()
	defer c.fileMu.Unlock()

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to commit cache file: %w", err)
	}

	c.index.Add(k, path)

	return nil
}

// InvalidateIf drops every indexed key matching p. The backing files are
// deleted asynchronously by the eviction listener.
func (c *DiskCache) InvalidateIf(p Predicate) int {
	n := 0
	for _, k := range c.index.Keys() {
		if p(k) && c.index.Remove(k) {
			n++
		}
	}
	return n
}

func (c *DiskCache) Len() int {
	return c.index.Len()
}

// onEvict runs for every entry leaving the index, whether pushed out by
// capacity or removed explicitly. It must not block.
func (c *DiskCache) onEvict(k Key, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		c.removeFile(k, path)
	}()
}

func (c *DiskCache) removeFile(k Key, path string) {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()

	// the key may have been written again since it was evicted
	if current, ok := c.index.Peek(k); ok && current == path {
		return
	}

	err := os.Remove(path)
	switch {
	case err == nil:
		metrics.DiskFileDeletions.Inc()
	case errors.Is(err, fs.ErrNotExist):
	default:
		c.logger.Debug("failed to delete evicted cache file", "path", path, "error", err)
	}
}

// Wait blocks until every scheduled file deletion has finished.
func (c *DiskCache) Wait() {
	c.pending.Wait()
}

// Close waits for pending deletions. Entries evicted afterwards keep their
// files, which are picked up again by the next startup scan.
func (c *DiskCache) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.pending.Wait()
	return nil
}

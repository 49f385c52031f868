package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/tempora/internal/model"
)

// SearchSpaceCache layers a memory cache over the persisted search-space
// map. The map is read once when opened; writes are buffered and written
// to the store on Flush.
type SearchSpaceCache struct {
	mu      sync.Mutex
	memory  *MemoryCache
	store   Store
	entries map[string][]byte
	changes map[string][]byte
	version string
	log     *zap.Logger
}

// Stats describes the cache state
type Stats struct {
	Entries     int    `json:"entries" yaml:"entries"`
	Pending     int    `json:"pending" yaml:"pending"` // Buffered writes not yet flushed
	MemoryItems int    `json:"memory_items" yaml:"memory_items"`
	Version     string `json:"version" yaml:"version"`
}

// NewSearchSpaceCache loads the store content and returns a ready cache
func NewSearchSpaceCache(ctx context.Context, store Store, memoryTTL time.Duration) (*SearchSpaceCache, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load search space cache")
	}
	c := &SearchSpaceCache{
		memory:  NewMemoryCache(memoryTTL, 10*time.Minute),
		store:   store,
		entries: snap.Entries,
		changes: map[string][]byte{},
		version: snap.Version,
		log:     zap.L().With(zap.String("component", "cache")),
	}
	if c.entries == nil {
		c.entries = map[string][]byte{}
	}
	return c, nil
}

// Open builds the configured store and loads it
func Open(ctx context.Context, cfg model.CacheConfig) (*SearchSpaceCache, error) {
	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c, err := NewSearchSpaceCache(ctx, store, cfg.MemoryTTL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return c, nil
}

// NewStore creates the persistent store selected by cfg.Backend
func NewStore(ctx context.Context, cfg model.CacheConfig) (Store, error) {
	dir := ExpandHome(cfg.Path)
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(dir), nil
	case "sqlite":
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, eris.Wrap(err, "create cache dir")
		}
		return NewSQLiteStore(ctx, filepath.Join(dir, "searchspace.db"))
	default:
		return nil, eris.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Get retrieves a value (checks memory first, then the loaded map)
func (c *SearchSpaceCache) Get(query string) ([]byte, bool) {
	key := CacheKey(query)
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	c.mu.Lock()
	val, found := c.entries[query]
	c.mu.Unlock()
	if !found {
		return nil, false
	}

	// Promote to memory cache
	_ = c.memory.Set(key, val, 0)
	return val, true
}

// Put records a value; it is persisted on the next Flush
func (c *SearchSpaceCache) Put(query string, value []byte) {
	c.mu.Lock()
	c.entries[query] = value
	c.changes[query] = value
	c.mu.Unlock()

	_ = c.memory.Set(CacheKey(query), value, 0)
}

// Flush writes buffered changes. When another process wrote in between,
// its entries are merged in and ours win on shared keys.
func (c *SearchSpaceCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.changes) == 0 {
		return nil
	}

	snap, conflict, err := c.store.Commit(ctx, c.version, c.changes)
	if err != nil {
		return eris.Wrap(err, "flush search space cache")
	}
	if conflict {
		c.log.Info("merged concurrent cache update",
			zap.String("base_version", c.version),
			zap.String("version", snap.Version),
			zap.Int("entries", len(snap.Entries)))
	}

	c.entries = snap.Entries
	c.version = snap.Version
	c.changes = map[string][]byte{}
	return nil
}

// Reset drops every entry, persisted ones included
func (c *SearchSpaceCache) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Reset(ctx); err != nil {
		return eris.Wrap(err, "reset search space cache")
	}
	c.entries = map[string][]byte{}
	c.changes = map[string][]byte{}
	c.version = ""
	return c.memory.Clear()
}

// Stats returns the current cache state
func (c *SearchSpaceCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:     len(c.entries),
		Pending:     len(c.changes),
		MemoryItems: c.memory.Len(),
		Version:     c.version,
	}
}

// Close flushes pending changes and closes the store
func (c *SearchSpaceCache) Close(ctx context.Context) error {
	flushErr := c.Flush(ctx)
	if err := c.store.Close(); err != nil && flushErr == nil {
		return eris.Wrap(err, "close cache store")
	}
	return flushErr
}

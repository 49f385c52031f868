package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a URL or query text
func CacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return "tempora:v1:" + hex.EncodeToString(hash[:])
}

// Snapshot is the persisted content of a store together with its version token
type Snapshot struct {
	Entries map[string][]byte
	Version string // Empty when nothing was ever written
}

// Store persists search-space results shared between processes.
// Commit writes changes on top of whatever the store currently holds;
// conflict is true when the store moved past base since it was loaded.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Commit(ctx context.Context, base string, changes map[string][]byte) (snap Snapshot, conflict bool, err error)
	Reset(ctx context.Context) error
	Close() error
}

func mergeEntries(current, changes map[string][]byte) map[string][]byte {
	merged := make(map[string][]byte, len(current)+len(changes))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range changes {
		merged[k] = v
	}
	return merged
}

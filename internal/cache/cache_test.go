package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/tempora/internal/model"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set("a", []byte("1"), 0))
	val, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), val)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Set("b", []byte("2"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok = c.Get("b")
	assert.False(t, ok)

	require.NoError(t, c.Delete("a"))
	_, ok = c.Get("a")
	assert.False(t, ok)

	require.NoError(t, c.Set("c", []byte("3"), 0))
	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Len())
}

func TestCacheKey(t *testing.T) {
	k := CacheKey("Barack Obama")
	assert.True(t, strings.HasPrefix(k, "tempora:v1:"))
	assert.Equal(t, k, CacheKey("Barack Obama"))
	assert.NotEqual(t, k, CacheKey("barack obama"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".tempora/cache"), ExpandHome("~/.tempora/cache"))
	assert.Equal(t, "/tmp/x", ExpandHome("/tmp/x"))
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewStore(ctx, model.CacheConfig{Backend: "file", Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = NewStore(ctx, model.CacheConfig{Backend: "sqlite", Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = NewStore(ctx, model.CacheConfig{Backend: "redis", Path: dir})
	assert.Error(t, err)
}

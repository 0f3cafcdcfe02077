package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type indexStub struct {
	Path    string   `json:"path"`
	Package string   `json:"package"`
	Fields  []string `json:"fields"`
}

func TestCache_RoundTrip(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	require.NoError(t, err)
	require.True(t, c.Enabled())

	src := []byte("package com.x; class A {}")
	hash := HashBytes(src)
	want := indexStub{Path: "A.java", Package: "com.x", Fields: []string{"repo"}}

	require.NoError(t, Store(c, "A.java", hash, want))

	got, ok := Load[indexStub](c, "A.java", hash)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = Load[indexStub](c, "A.java", HashBytes([]byte("changed")))
	assert.False(t, ok, "content change is a miss")

	_, ok = Load[indexStub](c, "B.java", hash)
	assert.False(t, ok)
}

func TestCache_Disabled(t *testing.T) {
	c, err := New("", 0, false)
	require.NoError(t, err)
	assert.False(t, c.Enabled())
	require.NoError(t, c.Set("k", "h", []byte(`{}`)))
	_, ok := c.Get("k", "h")
	assert.False(t, ok)

	var nilCache *Cache
	assert.False(t, nilCache.Enabled())
	_, ok = Load[indexStub](nilCache, "k", "h")
	assert.False(t, ok)
	assert.NoError(t, Store(nilCache, "k", "h", indexStub{}))
}

func TestCache_TTLAndVersion(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 1, true)
	require.NoError(t, err)

	require.NoError(t, c.Set("k", "h", []byte(`1`)))
	path := c.keyPath("k")

	old := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339Nano)
	stale := []byte(`{"version":1,"hash":"h","timestamp":"` + old + `","data":1}`)
	require.NoError(t, os.WriteFile(path, stale, 0o600))

	_, ok := c.Get("k", "h")
	assert.False(t, ok)
	assert.NoFileExists(t, path, "expired entries are removed")

	require.NoError(t, os.WriteFile(path, []byte(`{"version":0,"hash":"h","timestamp":"`+time.Now().Format(time.RFC3339Nano)+`","data":1}`), 0o600))
	_, ok = c.Get("k", "h")
	assert.False(t, ok, "other format versions are misses")
}

func TestCache_ConcurrentWrites(t *testing.T) {
	c, err := New(t.TempDir(), 0, true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, Store(c, "shared", "h", indexStub{Path: "A.java", Fields: make([]string, i)}))
		}()
	}
	wg.Wait()

	got, ok := Load[indexStub](c, "shared", "h")
	require.True(t, ok)
	assert.Equal(t, "A.java", got.Path)
}

func TestCache_InvalidateClearStats(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := New(dir, 0, true)
	require.NoError(t, err)

	require.NoError(t, c.Set("a", "h", []byte(`"a"`)))
	require.NoError(t, c.Set("b", "h", []byte(`"b"`)))

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Positive(t, stats.TotalSize)

	require.NoError(t, c.Invalidate("a"))
	require.NoError(t, c.Invalidate("a"))
	_, ok := c.Get("a", "h")
	assert.False(t, ok)

	require.NoError(t, c.Clear())
	assert.NoDirExists(t, dir)
}

func TestHashBytes(t *testing.T) {
	assert.Len(t, HashBytes(nil), 64)
	assert.Equal(t, HashBytes([]byte("x")), HashBytes([]byte("x")))
	assert.NotEqual(t, HashBytes([]byte("x")), HashBytes([]byte("y")))
}

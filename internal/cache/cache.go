// Package cache stores per-file phase-one results keyed by a BLAKE3 hash of
// the file content, so unchanged files skip symbol extraction on rescans.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// FormatVersion is stored in every entry. Entries written with another
// version are ignored, so a change to the cached structures only needs a
// bump here.
const FormatVersion = 2

// Cache is a directory of JSON entries. A nil or disabled Cache never hits
// and never writes. It is safe for concurrent use.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is one cached value.
type Entry struct {
	Version   int             `json:"version"`
	Hash      string          `json:"hash"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New creates the cache directory when enabled. A ttlHours of 0 keeps
// entries until their content hash changes.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache reads and writes.
func (c *Cache) Enabled() bool { return c != nil && c.enabled }

// HashBytes returns the hex BLAKE3-256 digest of data.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the data stored under key when its content hash is still
// hash. Stale, expired and unreadable entries are misses.
func (c *Cache) Get(key, hash string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	path := c.keyPath(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Version != FormatVersion || entry.Hash != hash {
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.Timestamp) > c.ttl {
		_ = os.Remove(path)
		return nil, false
	}
	return entry.Data, true
}

// Set stores data under key. Data must be valid JSON. The entry is written
// to a temporary file and renamed into place so readers never see a torn
// write.
func (c *Cache) Set(key, hash string, data []byte) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(Entry{
		Version:   FormatVersion,
		Hash:      hash,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.keyPath(key))
}

// Load decodes the value cached under key, if fresh.
func Load[T any](c *Cache, key, hash string) (T, bool) {
	var v T
	data, ok := c.Get(key, hash)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

// Store encodes v as JSON and caches it under key.
func Store[T any](c *Cache, key, hash string, v T) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, hash, data)
}

// Invalidate removes one entry. Removing a missing entry is not an error.
func (c *Cache) Invalidate(key string) error {
	if !c.Enabled() {
		return nil
	}
	if err := os.Remove(c.keyPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes every entry and the directory itself.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}
	return os.RemoveAll(c.dir)
}

func (c *Cache) keyPath(key string) string {
	return filepath.Join(c.dir, HashBytes([]byte(key))+".json")
}

// Stats describes the cache directory.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// GetStats walks the cache directory.
func (c *Cache) GetStats() (*Stats, error) {
	stats := &Stats{}
	if !c.Enabled() {
		return stats, nil
	}

	var oldest, newest time.Time
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		stats.Entries++
		stats.TotalSize += info.Size()
		mod := info.ModTime()
		if oldest.IsZero() || mod.Before(oldest) {
			oldest = mod
		}
		if newest.IsZero() || mod.After(newest) {
			newest = mod
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}
	return stats, nil
}

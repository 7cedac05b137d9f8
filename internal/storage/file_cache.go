// Package storage holds the persistent backends: item cache stores and the
// selection record files.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deusflow/curator/internal/cache"
)

// FileCache stores one JSON file per key under dir.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

var _ cache.Store = (*FileCache)(nil)

// NewFileCache creates a new file cache instance
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source; used by tests.
func (fc *FileCache) WithClock(now func() time.Time) *FileCache {
	fc.now = now
	return fc
}

func (fc *FileCache) path(key string) string {
	return filepath.Join(fc.dir, cache.KeyFor(key)+".json")
}

func (fc *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := fc.path(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry cache.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry is a miss; the next Set overwrites it.
		return nil, false, nil
	}
	if cache.Expired(entry.CreatedAt, fc.now(), fc.ttl) {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("failed to remove expired entry: %w", err)
		}
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (fc *FileCache) Set(_ context.Context, key string, payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("cache payload for %q is not valid JSON", key)
	}
	data, err := json.Marshal(cache.Entry{CreatedAt: fc.now().Unix(), Data: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	return WriteFileAtomic(fc.path(key), data, 0o644)
}

func (fc *FileCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(fc.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Sweep removes expired entries. Files that do not decode are left alone.
func (fc *FileCache) Sweep(_ context.Context) (int, error) {
	files, err := fc.entries()
	if err != nil {
		return 0, err
	}
	now := fc.now()
	removed := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry cache.Entry
		if json.Unmarshal(data, &entry) != nil {
			continue
		}
		if cache.Expired(entry.CreatedAt, now, fc.ttl) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (fc *FileCache) Clear(_ context.Context) error {
	files, err := fc.entries()
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	return nil
}

func (fc *FileCache) entries() ([]string, error) {
	dirEntries, err := os.ReadDir(fc.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache dir: %w", err)
	}
	var out []string
	for _, e := range dirEntries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, filepath.Join(fc.dir, name))
	}
	return out, nil
}

// GetStats returns cache statistics
func (fc *FileCache) GetStats() map[string]int {
	files, _ := fc.entries()
	return map[string]int{"total_items": len(files)}
}

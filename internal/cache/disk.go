package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DiskCache stores each entry as a plain file under dir, at the path given by
// its key. Files are left readable so the cache doubles as the document archive.
type DiskCache struct {
	dir string
	ttl time.Duration // zero keeps entries forever
}

// NewDiskCache creates a new disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
	}
}

// Dir returns the cache root
func (c *DiskCache) Dir() string {
	return c.dir
}

// Get retrieves a value from the disk cache
func (c *DiskCache) Get(key string) ([]byte, bool) {
	p, err := c.path(key)
	if err != nil {
		return nil, false
	}

	if c.ttl > 0 {
		info, err := os.Stat(p)
		if err != nil {
			return nil, false
		}
		if time.Since(info.ModTime()) > c.ttl {
			_ = os.Remove(p)
			return nil, false
		}
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Has reports whether key is present without reading it
func (c *DiskCache) Has(key string) bool {
	p, err := c.path(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return false
	}
	return c.ttl == 0 || time.Since(info.ModTime()) <= c.ttl
}

// Set stores a value on disk. Entries age out by file modification time
// against the cache-wide TTL; the per-entry ttl is ignored.
func (c *DiskCache) Set(key string, value []byte, _ time.Duration) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, value, 0644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit cache file: %w", err)
	}

	return nil
}

// Delete removes a value from the disk cache
func (c *DiskCache) Delete(key string) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes all cached files
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// List returns the keys directly under prefix whose names end in suffix,
// sorted. A missing prefix directory yields no keys and no error.
func (c *DiskCache) List(prefix, suffix string) ([]string, error) {
	prefix, err := CleanKey(prefix)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(c.dir, filepath.FromSlash(prefix)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list cache dir: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		keys = append(keys, prefix+"/"+entry.Name())
	}
	sort.Strings(keys)

	return keys, nil
}

// Exists reports whether the directory for prefix exists
func (c *DiskCache) Exists(prefix string) bool {
	prefix, err := CleanKey(prefix)
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(c.dir, filepath.FromSlash(prefix)))
	return err == nil && info.IsDir()
}

// path generates the file path for a cache key
func (c *DiskCache) path(key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.dir, filepath.FromSlash(key)), nil
}

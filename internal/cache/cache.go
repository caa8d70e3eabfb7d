package cache

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Cache defines the interface for caching fetched gazette pages
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CleanKey normalises a relative cache key such as "gazette/2006/18_Sep30.txt".
// Keys that are absolute or escape the cache root are rejected.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	cleaned := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return cleaned, nil
}

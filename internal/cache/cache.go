// Package cache persists serialized file indexes between runs.
package cache

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache is a key/value store for serialized file indexes. Timestamp returns
// the time of the last successful Store for key and is compared against the
// source file's modification time to decide freshness.
type Cache interface {
	Exists(key string) (bool, error)
	Store(key string, data []byte) error
	Fetch(key string) ([]byte, error)
	Timestamp(key string) (time.Time, error)
}

// Key derives the cache key for a source path. The seed keeps several
// independently configured managers apart when they share one store.
func Key(path, seed string) string {
	sum := xxhash.Sum64String(path + seed)
	return filepath.Base(path) + "-" + strconv.FormatUint(sum, 16)
}

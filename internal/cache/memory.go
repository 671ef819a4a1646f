package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/phobologic/annotate/internal/errs"
)

type memoryEntry struct {
	data   []byte
	stored time.Time
}

// MemoryCache keeps entries in process memory for the lifetime of the
// process. Entries never expire.
type MemoryCache struct {
	cache *gocache.Cache
	now   func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(gocache.NoExpiration, 0),
		now:   time.Now,
	}
}

func (c *MemoryCache) entry(key string) (memoryEntry, bool) {
	v, found := c.cache.Get(key)
	if !found {
		return memoryEntry{}, false
	}
	e, ok := v.(memoryEntry)
	return e, ok
}

// Exists reports whether an entry is stored for key.
func (c *MemoryCache) Exists(key string) (bool, error) {
	_, ok := c.entry(key)
	return ok, nil
}

// Store keeps a copy of data under key.
func (c *MemoryCache) Store(key string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	c.cache.Set(key, memoryEntry{data: buf, stored: c.now()}, gocache.NoExpiration)
	return nil
}

// Fetch returns the data stored under key.
func (c *MemoryCache) Fetch(key string) ([]byte, error) {
	e, ok := c.entry(key)
	if !ok {
		return nil, errs.New(errs.Cache, "no entry for %s", key)
	}
	return e.data, nil
}

// Timestamp returns the time key was last stored.
func (c *MemoryCache) Timestamp(key string) (time.Time, error) {
	e, ok := c.entry(key)
	if !ok {
		return time.Time{}, errs.New(errs.Cache, "no entry for %s", key)
	}
	return e.stored, nil
}

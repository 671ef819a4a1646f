package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/phobologic/annotate/internal/errs"
)

// FileCache stores one file per key in a directory. Writes go through a
// temporary file and a rename so readers never observe a partial entry.
type FileCache struct {
	dir    string
	logger *zap.Logger
}

var _ Cache = (*FileCache)(nil)

// NewFileCache creates dir if needed and returns a cache rooted there.
func NewFileCache(dir string, logger *zap.Logger) (*FileCache, error) {
	if dir == "" {
		return nil, errs.New(errs.Cache, "cache directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, errs.Cache, "creating cache directory %s", dir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileCache{dir: dir, logger: logger}, nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".idx")
}

// Exists reports whether an entry is stored for key.
func (c *FileCache) Exists(key string) (bool, error) {
	_, err := os.Stat(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(err, errs.Cache, "checking %s", key)
	}
	return true, nil
}

// Store writes data under key, replacing any previous entry atomically.
func (c *FileCache) Store(key string, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return errs.Wrap(err, errs.Cache, "storing %s", key)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errs.Wrap(err, errs.Cache, "storing %s", key)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errs.Wrap(err, errs.Cache, "storing %s", key)
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return errs.Wrap(err, errs.Cache, "storing %s", key)
	}

	c.logger.Debug("cache entry stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// Fetch returns the data stored under key.
func (c *FileCache) Fetch(key string) ([]byte, error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, errs.Wrap(err, errs.Cache, "fetching %s", key)
	}
	return data, nil
}

// Timestamp returns the modification time of the entry file.
func (c *FileCache) Timestamp(key string) (time.Time, error) {
	info, err := os.Stat(c.path(key))
	if err != nil {
		return time.Time{}, errs.Wrap(err, errs.Cache, "reading timestamp of %s", key)
	}
	return info.ModTime(), nil
}

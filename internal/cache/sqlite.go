package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/phobologic/annotate/internal/errs"
)

const sqliteDriverName = "sqlite"

// SQLiteCache stores entries in a single SQLite table, which suits caches
// shared by several processes better than a directory of files.
type SQLiteCache struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ Cache = (*SQLiteCache)(nil)

// OpenSQLiteCache opens (creating if needed) the database at path.
func OpenSQLiteCache(path string, logger *zap.Logger) (*SQLiteCache, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errs.New(errs.Cache, "sqlite cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errs.New(errs.Cache, "sqlite cache path %q is a directory", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.Wrap(err, errs.Cache, "creating cache directory %q", dir)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, errs.Wrap(err, errs.Cache, "opening sqlite cache %q", cleanPath)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(err, errs.Cache, "pinging sqlite cache %q", cleanPath)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS file_index (
	key       TEXT PRIMARY KEY,
	data      BLOB NOT NULL,
	stored_at INTEGER NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(err, errs.Cache, "creating sqlite cache schema")
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteCache{db: db, logger: logger, now: time.Now}, nil
}

// Close releases the database handle.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Exists reports whether an entry is stored for key.
func (c *SQLiteCache) Exists(key string) (bool, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM file_index WHERE key = ?`, key).Scan(&n); err != nil {
		return false, errs.Wrap(err, errs.Cache, "checking %s", key)
	}
	return n > 0, nil
}

// Store upserts data under key.
func (c *SQLiteCache) Store(key string, data []byte) error {
	_, err := c.db.Exec(`
INSERT INTO file_index (key, data, stored_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET data = excluded.data, stored_at = excluded.stored_at
`, key, data, c.now().UnixNano())
	if err != nil {
		return errs.Wrap(err, errs.Cache, "storing %s", key)
	}
	c.logger.Debug("cache entry stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// Fetch returns the data stored under key.
func (c *SQLiteCache) Fetch(key string) ([]byte, error) {
	var data []byte
	err := c.db.QueryRow(`SELECT data FROM file_index WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.Cache, "no entry for %s", key)
	}
	if err != nil {
		return nil, errs.Wrap(err, errs.Cache, "fetching %s", key)
	}
	return data, nil
}

// Timestamp returns the time key was last stored.
func (c *SQLiteCache) Timestamp(key string) (time.Time, error) {
	var nanos int64
	err := c.db.QueryRow(`SELECT stored_at FROM file_index WHERE key = ?`, key).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, errs.New(errs.Cache, "no entry for %s", key)
	}
	if err != nil {
		return time.Time{}, errs.Wrap(err, errs.Cache, "reading timestamp of %s", key)
	}
	return time.Unix(0, nanos), nil
}

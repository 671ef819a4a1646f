// Package config loads annotate.toml and turns it into the runtime
// configuration of the metadata manager and its cache.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/phobologic/annotate/internal/cache"
	"github.com/phobologic/annotate/internal/discover"
	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/metadata"
	"github.com/phobologic/annotate/internal/standard"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "annotate.toml"

const (
	defaultSuffix      = "Annotation"
	defaultBackend     = "file"
	defaultCacheDir    = ".annotate-cache"
	defaultSQLitePath  = ".annotate-cache.db"
	defaultMaxFileSize = 1_000_000 // 1 MB
	defaultDebounce    = 200 * time.Millisecond
)

var backends = map[string]struct{}{
	"none":   {},
	"file":   {},
	"memory": {},
	"sqlite": {},
}

// Config mirrors annotate.toml.
type Config struct {
	Autoload  bool   `toml:"autoload"`
	Suffix    string `toml:"suffix"`
	Namespace string `toml:"namespace"`

	Cache    Cache          `toml:"cache"`
	Registry map[string]any `toml:"registry"`
	Discover Discover       `toml:"discover"`
	Watch    Watch          `toml:"watch"`
}

// Cache selects where file indexes are persisted. Seed is mixed into
// every cache key.
type Cache struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
	Seed    string `toml:"seed"`
}

type Discover struct {
	Exclude     []string `toml:"exclude"`
	MaxFileSize int64    `toml:"max_file_size"`
}

// Watch tunes the watch command.
type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Load reads, defaults and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(err, errs.NotFound, "config file %s", path).WithContext(errs.CtxPath, path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(string(data))
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist and was not asked for explicitly.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && !explicit && errs.Is(err, errs.NotFound) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes TOML text.
func Parse(text string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return nil, errs.Wrap(err, errs.Configuration, "decoding config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errs.New(errs.Configuration, "unknown config keys: %s", strings.Join(keys, ", "))
	}

	applyDefaults(&cfg)

	if err := validateCache(&cfg); err != nil {
		return nil, err
	}
	if err := validateRegistry(&cfg); err != nil {
		return nil, err
	}
	if err := validateDiscover(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Suffix) == "" {
		cfg.Suffix = defaultSuffix
	}
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = defaultBackend
	}
	if strings.TrimSpace(cfg.Cache.Path) == "" {
		switch cfg.Cache.Backend {
		case "file":
			cfg.Cache.Path = defaultCacheDir
		case "sqlite":
			cfg.Cache.Path = defaultSQLitePath
		}
	}
	if cfg.Discover.MaxFileSize == 0 {
		cfg.Discover.MaxFileSize = defaultMaxFileSize
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = defaultDebounce
	}
}

func validateCache(cfg *Config) error {
	if _, ok := backends[cfg.Cache.Backend]; !ok {
		return errs.New(errs.Configuration, "unknown cache backend %q (want none, file, memory or sqlite)", cfg.Cache.Backend)
	}
	return nil
}

func validateRegistry(cfg *Config) error {
	for name, v := range cfg.Registry {
		switch v := v.(type) {
		case string:
		case bool:
			if v {
				return errs.New(errs.Configuration, "registry entry %q: true is not a type name", name)
			}
		default:
			return errs.New(errs.Configuration, "registry entry %q must be a type name or false", name)
		}
	}
	return nil
}

func validateDiscover(cfg *Config) error {
	if cfg.Discover.MaxFileSize < 0 {
		return errs.New(errs.Configuration, "max_file_size must not be negative")
	}
	if _, err := discover.CompileExcludes(cfg.Discover.Exclude); err != nil {
		return errs.Wrap(err, errs.Configuration, "discover.exclude")
	}
	return nil
}

// DiscoverOptions returns the file discovery options.
func (c *Config) DiscoverOptions() discover.Options {
	return discover.Options{Exclude: c.Discover.Exclude, MaxFileSize: c.Discover.MaxFileSize}
}

// RegistryMap merges the user registry over the built-in and stock
// entries. A false or empty value disables the tag.
func (c *Config) RegistryMap() map[string]string {
	r := metadata.DefaultRegistry()
	for k, v := range standard.Registry() {
		r[k] = v
	}
	names := make([]string, 0, len(c.Registry))
	for name := range c.Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch v := c.Registry[name].(type) {
		case string:
			if strings.EqualFold(v, "false") {
				v = metadata.Disabled
			}
			r[name] = v
		case bool:
			r[name] = metadata.Disabled
		}
	}
	return r
}

// ManagerConfig builds the manager configuration. The stock types are
// registered up front, or loaded on first use when autoload is on.
func (c *Config) ManagerConfig(symbols metadata.SymbolTable, store cache.Cache, logger *zap.Logger) metadata.Config {
	cfg := metadata.Config{
		Autoload:  c.Autoload,
		Suffix:    c.Suffix,
		Namespace: c.Namespace,
		Registry:  c.RegistryMap(),
		Cache:     store,
		CacheSeed: c.Cache.Seed,
		Symbols:   symbols,
		Logger:    logger,
	}
	if c.Autoload {
		cfg.Loader = standardLoader
	} else {
		cfg.Types = standard.Types()
	}
	return cfg
}

func standardLoader(name string) (metadata.Type, bool) {
	for _, t := range standard.Types() {
		if t.Name == name {
			return t, true
		}
	}
	return metadata.Type{}, false
}

// OpenCache opens the configured backend. Relative paths are taken from
// root. The returned close function is never nil.
func (c *Config) OpenCache(root string, logger *zap.Logger) (cache.Cache, func() error, error) {
	noop := func() error { return nil }

	path := c.Cache.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	switch c.Cache.Backend {
	case "none":
		return nil, noop, nil
	case "memory":
		return cache.NewMemoryCache(), noop, nil
	case "sqlite":
		db, err := cache.OpenSQLiteCache(path, logger)
		if err != nil {
			return nil, noop, err
		}
		return db, db.Close, nil
	default:
		fc, err := cache.NewFileCache(path, logger)
		if err != nil {
			return nil, noop, err
		}
		return fc, noop, nil
	}
}

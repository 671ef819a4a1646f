package metadata

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/phobologic/annotate/internal/cache"
	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/model"
	"github.com/phobologic/annotate/internal/parse"
)

// Manager resolves metadata for declarations. Results are memoized for the
// lifetime of the Manager. A Manager is not safe for concurrent use.
type Manager struct {
	cfg      Config
	logger   *zap.Logger
	symbols  SymbolTable
	registry map[string]string
	types    map[string]Type
	indexer  *parse.Indexer

	files     map[string]*model.FileIndex
	instances map[string][]Instance
	usages    map[string]*Usage
	resolving map[string]bool
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		logger:    cfg.Logger,
		symbols:   cfg.Symbols,
		registry:  cfg.Registry,
		types:     make(map[string]Type, len(cfg.Types)+1),
		files:     make(map[string]*model.FileIndex),
		instances: make(map[string][]Instance),
		usages:    make(map[string]*Usage),
		resolving: make(map[string]bool),
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.symbols == nil {
		m.symbols = emptySymbols{}
	}
	if m.registry == nil {
		m.registry = DefaultRegistry()
	}

	m.types[UsageType] = usageType()
	for _, t := range cfg.Types {
		if err := m.register(t); err != nil {
			return nil, err
		}
	}

	m.indexer = &parse.Indexer{Resolver: m}
	return m, nil
}

func (m *Manager) register(t Type) error {
	name := model.Key(t.Name)
	if name == "" {
		return errs.New(errs.Configuration, "metadata type registered without a name")
	}
	if t.New == nil {
		return errs.New(errs.Resolution, "metadata type %s has no constructor", name)
	}
	if _, dup := m.types[name]; dup {
		return errs.New(errs.Configuration, "metadata type %s registered twice", name)
	}
	t.Name = name
	m.types[name] = t
	return nil
}

// lookupType returns the registered type, consulting the loader when
// autoloading is enabled.
func (m *Manager) lookupType(name string) (Type, error) {
	name = model.Key(name)
	if t, ok := m.types[name]; ok {
		return t, nil
	}
	if m.cfg.Autoload && m.cfg.Loader != nil {
		if t, ok := m.cfg.Loader(name); ok {
			t.Name = name
			if err := m.register(t); err != nil {
				return Type{}, err
			}
			return t, nil
		}
	}
	return Type{}, errs.New(errs.Resolution, "annotation type %s not found", name).WithContext(errs.CtxType, name)
}

// ResolveName maps a tag name to a qualified type name. ok is false when
// the tag is disabled. A name containing a namespace separator is taken as
// already qualified and wins over the registry.
func (m *Manager) ResolveName(name string) (string, bool, error) {
	typeName, ok := m.resolveName(name)
	if !ok {
		return "", false, nil
	}
	if _, err := m.lookupType(typeName); err != nil {
		return "", false, err
	}
	return typeName, true, nil
}

func (m *Manager) resolveName(name string) (string, bool) {
	if strings.Contains(name, model.Separator) {
		return model.Key(name) + m.cfg.Suffix, true
	}

	if typeName, ok := m.registry[lcfirst(name)]; ok {
		return typeName, typeName != Disabled
	}

	words := strings.Split(name, "-")
	for i, w := range words {
		words[i] = ucfirst(w)
	}
	typeName := strings.Join(words, "_") + m.cfg.Suffix
	if m.cfg.Namespace != "" {
		typeName = model.Key(m.cfg.Namespace) + model.Separator + typeName
	}
	return typeName, true
}

// ParseBareValue parses a single-line tag value on behalf of typeName.
func (m *Manager) ParseBareValue(typeName, value string) (map[string]model.Value, error) {
	t, err := m.lookupType(typeName)
	if err != nil {
		return nil, err
	}
	p, ok := t.New().(BareValueParser)
	if !ok {
		return nil, errs.New(errs.Resolution, "annotation type %s does not support single-line values: %q", t.Name, value).
			WithContext(errs.CtxType, t.Name)
	}
	return p.ParseBareValue(value)
}

// FileIndex returns the index of the source file at path, from the cache
// when it is fresh and by indexing the file otherwise. Each path is
// consulted at most once per Manager.
func (m *Manager) FileIndex(path string) (*model.FileIndex, error) {
	if idx, ok := m.files[path]; ok {
		return idx, nil
	}

	idx, err := m.loadIndex(path, false)
	if err != nil {
		return nil, err
	}
	m.files[path] = idx
	return idx, nil
}

// Reindex drops everything memoized and indexes path again, replacing its
// persistent cache entry even when the entry looks fresh.
func (m *Manager) Reindex(path string) (*model.FileIndex, error) {
	m.files = make(map[string]*model.FileIndex)
	m.instances = make(map[string][]Instance)
	m.usages = make(map[string]*Usage)
	idx, err := m.loadIndex(path, true)
	if err != nil {
		return nil, err
	}
	m.files[path] = idx
	return idx, nil
}

func (m *Manager) loadIndex(path string, force bool) (*model.FileIndex, error) {
	if m.cfg.Cache == nil {
		return m.index(path)
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(err, errs.NotFound, "source file %s", path).WithContext(errs.CtxPath, path)
	}
	if err != nil {
		return nil, errs.Wrap(err, errs.Cache, "checking source file %s", path)
	}

	key := cache.Key(path, m.cfg.CacheSeed)
	exists, err := m.cfg.Cache.Exists(key)
	if err != nil {
		return nil, err
	}
	if exists && !force {
		stored, err := m.cfg.Cache.Timestamp(key)
		if err != nil {
			return nil, err
		}
		if !info.ModTime().After(stored) {
			data, err := m.cfg.Cache.Fetch(key)
			if err != nil {
				return nil, err
			}
			idx, err := cache.Decode(data)
			if err == nil {
				m.logger.Debug("index cache hit", zap.String("path", path), zap.String("key", key))
				return idx, nil
			}
			m.logger.Debug("index cache entry unreadable", zap.String("path", path), zap.Error(err))
		} else {
			m.logger.Debug("index cache stale", zap.String("path", path), zap.Time("stored", stored), zap.Time("modified", info.ModTime()))
		}
	} else if !force {
		m.logger.Debug("index cache miss", zap.String("path", path))
	}

	idx, err := m.index(path)
	if err != nil {
		return nil, err
	}
	data, err := cache.Encode(idx)
	if err != nil {
		return nil, err
	}
	if err := m.cfg.Cache.Store(key, data); err != nil {
		return nil, errs.AddContext(err, errs.CtxPath, path)
	}
	return idx, nil
}

func (m *Manager) index(path string) (*model.FileIndex, error) {
	start := time.Now()
	idx, err := m.indexer.IndexFile(context.Background(), path)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("file indexed",
		zap.String("path", path),
		zap.Int("declarations", len(idx.Tags)),
		zap.Duration("duration", time.Since(start)))
	return idx, nil
}

func lcfirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func ucfirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

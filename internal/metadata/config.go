package metadata

import (
	"go.uber.org/zap"

	"github.com/phobologic/annotate/internal/cache"
	"github.com/phobologic/annotate/internal/model"
)

// Disabled is the registry value of a tag that is recognized but produces
// no metadata.
const Disabled = ""

// SymbolTable describes the declared types of the scanned project.
type SymbolTable interface {
	Lookup(name string) (*model.TypeDecl, bool)
}

// Config is the construction-time configuration of a Manager. It is read
// once; later changes have no effect.
type Config struct {
	// Autoload consults Loader for type names that are not registered.
	Autoload bool
	Loader   func(name string) (Type, bool)

	// Suffix is appended to tag names to form type names.
	Suffix string
	// Namespace qualifies type names derived from unregistered tag names.
	Namespace string

	// Registry maps short tag names to qualified type names or Disabled.
	// Nil means DefaultRegistry.
	Registry map[string]string
	Types    []Type

	// Cache persists file indexes. Nil disables caching.
	Cache     cache.Cache
	CacheSeed string

	Symbols SymbolTable
	Logger  *zap.Logger
}

// DefaultRegistry returns the built-in registry: common documentation tags
// are disabled and usage maps to the constraint type.
func DefaultRegistry() map[string]string {
	r := make(map[string]string, len(documentationTags)+1)
	for _, name := range documentationTags {
		r[name] = Disabled
	}
	r["usage"] = UsageType
	return r
}

var documentationTags = []string{
	"api", "abstract", "access", "author", "category", "copyright",
	"deprecated", "example", "filesource", "final", "global", "ignore",
	"internal", "license", "link", "name", "package", "see", "since",
	"source", "static", "staticvar", "subpackage", "todo", "tutorial",
	"throws", "uses", "version",
}

type emptySymbols struct{}

func (emptySymbols) Lookup(string) (*model.TypeDecl, bool) { return nil, false }

// Package metadata resolves the tags indexed from documentation comments
// into validated, typed metadata instances.
package metadata

import (
	"github.com/phobologic/annotate/internal/model"
)

// Annotation is the mandatory capability of every metadata type: it is
// populated from the raw arguments of one tag.
type Annotation interface {
	Init(args model.Args) error
}

// BareValueParser is implemented by types that accept a single-line value
// such as `@var string the name`. The result becomes the tag's named
// arguments.
type BareValueParser interface {
	ParseBareValue(value string) (map[string]model.Value, error)
}

// FileAware is implemented by types that resolve type references against
// the namespace and import table of the file the tag was written in. SetFile
// is called before Init.
type FileAware interface {
	SetFile(file *model.FileIndex)
}

// Type registers a metadata type under its fully qualified name.
type Type struct {
	Name string
	New  func() Annotation
	// Usage is the type's constraint. When nil it is read from the @usage
	// tag of the type's own declaration in the symbol table.
	Usage *Usage
}

// Instance is one constructed, validated metadata object.
type Instance struct {
	// Type is the resolved, fully qualified metadata type name.
	Type string
	// Name is the tag name as written in the comment.
	Name string
	Annotation
}

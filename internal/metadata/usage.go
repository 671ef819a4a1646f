package metadata

import (
	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/model"
)

// UsageType is the qualified name of the usage constraint type.
const UsageType = `annotate\UsageAnnotation`

// Usage declares where a metadata type may be applied, whether it is
// inherited by subtypes and whether it may repeat on one declaration.
type Usage struct {
	Class     bool `json:"class" yaml:"class"`
	Property  bool `json:"property" yaml:"property"`
	Method    bool `json:"method" yaml:"method"`
	Inherited bool `json:"inherited" yaml:"inherited"`
	Multiple  bool `json:"multiple" yaml:"multiple"`
}

// builtinUsage constrains the usage type itself.
var builtinUsage = Usage{Class: true, Inherited: true}

// Init reads the named boolean flags class, property, method, inherited
// and multiple.
func (u *Usage) Init(args model.Args) error {
	if len(args.Positional) > 0 {
		return errs.New(errs.Configuration, "usage takes named arguments only, got %s", args.String())
	}
	for _, f := range args.Named {
		b, ok := f.Value.AsBool()
		if !ok {
			return errs.New(errs.Configuration, "usage flag %q must be a boolean, got %s", f.Key, f.Value.String())
		}
		switch f.Key {
		case "class":
			u.Class = b
		case "property":
			u.Property = b
		case "method":
			u.Method = b
		case "inherited":
			u.Inherited = b
		case "multiple":
			u.Multiple = b
		default:
			return errs.New(errs.Configuration, "unknown usage flag %q", f.Key)
		}
	}
	if !u.Class && !u.Property && !u.Method {
		return errs.New(errs.Configuration, "usage must allow at least one of class, property or method")
	}
	return nil
}

// Allows reports whether the constraint permits the declaration kind.
func (u *Usage) Allows(kind model.Kind) bool {
	switch kind {
	case model.Class:
		return u.Class
	case model.Method:
		return u.Method
	case model.Property:
		return u.Property
	}
	return false
}

func usageType() Type {
	return Type{
		Name:  UsageType,
		New:   func() Annotation { return &Usage{} },
		Usage: &builtinUsage,
	}
}

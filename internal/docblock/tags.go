package docblock

import (
	"sort"
	"strings"

	"github.com/phobologic/annotate/internal/model"
)

// Resolver maps tag names to metadata type names and parses single-line
// values on behalf of the metadata types that support them.
type Resolver interface {
	// ResolveName returns the qualified type name for a tag name. ok is
	// false when the tag is disabled and must be dropped.
	ResolveName(name string) (typeName string, ok bool, err error)
	// ParseBareValue parses a single-line value for the given type.
	ParseBareValue(typeName, value string) (map[string]model.Value, error)
}

// Tags extracts the tags of one comment and resolves them into tag
// specifications. Disabled tags are dropped.
func Tags(comment string, r Resolver) ([]model.TagSpec, error) {
	raw, err := Extract(comment)
	if err != nil {
		return nil, err
	}

	var specs []model.TagSpec
	for _, tag := range raw {
		typeName, ok, err := r.ResolveName(tag.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		spec := model.TagSpec{Name: tag.Name, Type: typeName}
		switch {
		case !tag.HasValue:
		case strings.HasPrefix(tag.Value, "("):
			spec.Args, err = ParseArgs(tag.Value)
		default:
			var named map[string]model.Value
			named, err = r.ParseBareValue(typeName, tag.Value)
			spec.Args = namedArgs(named)
		}
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func namedArgs(named map[string]model.Value) model.Args {
	if len(named) == 0 {
		return model.Args{}
	}
	keys := make([]string, 0, len(named))
	for k := range named {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]model.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, model.Field{Key: k, Value: named[k]})
	}
	return model.Args{Named: fields}
}

// Package standard provides the stock metadata types: validation rules,
// display hints and the documentation tags that carry type information.
package standard

import (
	"sort"
	"strings"

	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/metadata"
	"github.com/phobologic/annotate/internal/model"
)

// Namespace qualifies the names of the stock types.
const Namespace = `annotate\standard`

type entry struct {
	tag   string
	name  string
	new   func() metadata.Annotation
	usage metadata.Usage
}

var (
	propertyRule = metadata.Usage{Property: true, Inherited: true}
	classMembers = metadata.Usage{Class: true, Inherited: true, Multiple: true}
)

var entries = []entry{
	{"required", "RequiredAnnotation", func() metadata.Annotation { return &Required{} }, metadata.Usage{Property: true}},
	{"length", "LengthAnnotation", func() metadata.Annotation { return &Length{} }, propertyRule},
	{"range", "RangeAnnotation", func() metadata.Annotation { return &Range{} }, propertyRule},
	{"match", "MatchAnnotation", func() metadata.Annotation { return &Match{} }, propertyRule},
	{"enum", "EnumAnnotation", func() metadata.Annotation { return &Enum{} }, propertyRule},
	{"display", "DisplayAnnotation", func() metadata.Annotation { return &Display{} }, propertyRule},
	{"format", "FormatAnnotation", func() metadata.Annotation { return &Format{} }, propertyRule},
	{"note", "NoteAnnotation", func() metadata.Annotation { return &Note{} },
		metadata.Usage{Class: true, Property: true, Method: true, Inherited: true, Multiple: true}},
	{"var", "VarAnnotation", func() metadata.Annotation { return &Var{} }, propertyRule},
	{"type", "TypeAnnotation", func() metadata.Annotation { return &Var{} }, propertyRule},
	{"param", "ParamAnnotation", func() metadata.Annotation { return &Param{} },
		metadata.Usage{Method: true, Inherited: true, Multiple: true}},
	{"return", "ReturnAnnotation", func() metadata.Annotation { return &Return{} },
		metadata.Usage{Method: true, Inherited: true}},
	{"property", "PropertyAnnotation", func() metadata.Annotation { return &Property{} }, classMembers},
	{"property-read", "PropertyReadAnnotation", func() metadata.Annotation { return &Property{ReadOnly: true} }, classMembers},
	{"property-write", "PropertyWriteAnnotation", func() metadata.Annotation { return &Property{WriteOnly: true} }, classMembers},
	{"method", "MethodAnnotation", func() metadata.Annotation { return &Method{} }, classMembers},
}

// Types returns the registrations of every stock type.
func Types() []metadata.Type {
	types := make([]metadata.Type, 0, len(entries))
	for _, e := range entries {
		usage := e.usage
		types = append(types, metadata.Type{
			Name:  Namespace + model.Separator + e.name,
			New:   e.new,
			Usage: &usage,
		})
	}
	return types
}

// Registry maps the stock tag names to their qualified type names.
func Registry() map[string]string {
	r := make(map[string]string, len(entries))
	for _, e := range entries {
		r[e.tag] = Namespace + model.Separator + e.name
	}
	return r
}

// TypeName returns the qualified type name of a stock tag, or "".
func TypeName(tag string) string {
	return Registry()[tag]
}

// props merges positional arguments, bound in order to the given names,
// with the named arguments. Later named values win.
func props(args model.Args, positional ...string) (map[string]model.Value, error) {
	if len(args.Positional) > len(positional) {
		return nil, errs.New(errs.Configuration, "too many positional arguments %s", args.String())
	}
	m := make(map[string]model.Value, args.Len())
	for i, v := range args.Positional {
		m[positional[i]] = v
	}
	for _, f := range args.Named {
		m[f.Key] = f.Value
	}
	return m, nil
}

// only rejects properties outside allowed.
func only(m map[string]model.Value, allowed ...string) error {
	var unknown []string
	for k := range m {
		found := false
		for _, a := range allowed {
			if k == a {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errs.New(errs.Configuration, "undefined properties %s", strings.Join(unknown, ", "))
}

func stringProp(m map[string]model.Value, name string) (string, bool, error) {
	v, ok := m[name]
	if !ok || v.Kind == model.NullValue {
		return "", false, nil
	}
	s, ok := v.AsString()
	if !ok {
		return "", false, errs.New(errs.Configuration, "%s must be a string, got %s", name, v.String())
	}
	return s, true, nil
}

func intProp(m map[string]model.Value, name string) (*int64, error) {
	v, ok := m[name]
	if !ok || v.Kind == model.NullValue {
		return nil, nil
	}
	n, ok := v.AsInt()
	if !ok {
		return nil, errs.New(errs.Configuration, "%s must be an integer, got %s", name, v.String())
	}
	return &n, nil
}

func floatProp(m map[string]model.Value, name string) (*float64, error) {
	v, ok := m[name]
	if !ok || v.Kind == model.NullValue {
		return nil, nil
	}
	f, ok := v.AsFloat()
	if !ok {
		return nil, errs.New(errs.Configuration, "%s must be a number, got %s", name, v.String())
	}
	return &f, nil
}

func boolProp(m map[string]model.Value, name string) (bool, error) {
	v, ok := m[name]
	if !ok {
		return false, nil
	}
	b, ok := v.AsBool()
	if !ok {
		return false, errs.New(errs.Configuration, "%s must be a boolean, got %s", name, v.String())
	}
	return b, nil
}

package standard

import (
	"regexp"

	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/model"
)

// Required marks a field that must hold a value.
type Required struct {
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

func (a *Required) Init(args model.Args) error {
	m, err := props(args, "message")
	if err != nil {
		return err
	}
	if err := only(m, "message"); err != nil {
		return err
	}
	a.Message, _, err = stringProp(m, "message")
	return err
}

// Length bounds the length of a string field. A single positional
// argument is the maximum; two are minimum and maximum.
type Length struct {
	Min     *int64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *int64 `json:"max,omitempty" yaml:"max,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

func (a *Length) Init(args model.Args) error {
	positional := []string{"max"}
	if len(args.Positional) > 1 {
		positional = []string{"min", "max"}
	}
	m, err := props(args, positional...)
	if err != nil {
		return err
	}
	if err := only(m, "min", "max", "message"); err != nil {
		return err
	}
	if a.Min, err = intProp(m, "min"); err != nil {
		return err
	}
	if a.Max, err = intProp(m, "max"); err != nil {
		return err
	}
	if a.Min == nil && a.Max == nil {
		return errs.New(errs.Configuration, "length requires a min and/or max property")
	}
	if a.Min != nil && a.Max != nil && *a.Min > *a.Max {
		return errs.New(errs.Configuration, "length min %d exceeds max %d", *a.Min, *a.Max)
	}
	a.Message, _, err = stringProp(m, "message")
	return err
}

// Range bounds a numeric field.
type Range struct {
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}

func (a *Range) Init(args model.Args) error {
	m, err := props(args, "min", "max")
	if err != nil {
		return err
	}
	if err := only(m, "min", "max", "message"); err != nil {
		return err
	}
	if a.Min, err = floatProp(m, "min"); err != nil {
		return err
	}
	if a.Max, err = floatProp(m, "max"); err != nil {
		return err
	}
	if a.Min == nil && a.Max == nil {
		return errs.New(errs.Configuration, "range requires a min and/or max property")
	}
	a.Message, _, err = stringProp(m, "message")
	return err
}

// Match requires a string field to match a regular expression.
type Match struct {
	Pattern string         `json:"pattern" yaml:"pattern"`
	Message string         `json:"message,omitempty" yaml:"message,omitempty"`
	Regexp  *regexp.Regexp `json:"-" yaml:"-"`
}

func (a *Match) Init(args model.Args) error {
	m, err := props(args, "pattern")
	if err != nil {
		return err
	}
	if err := only(m, "pattern", "message"); err != nil {
		return err
	}
	pattern, ok, err := stringProp(m, "pattern")
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.Configuration, "match requires a pattern property")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errs.Wrap(err, errs.Configuration, "match pattern %q", pattern)
	}
	a.Pattern, a.Regexp = pattern, re
	a.Message, _, err = stringProp(m, "message")
	return err
}

// Enum restricts a field to a list of values.
type Enum struct {
	Values  []any  `json:"values" yaml:"values"`
	Strict  bool   `json:"strict,omitempty" yaml:"strict,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

func (a *Enum) Init(args model.Args) error {
	m, err := props(args, "values")
	if err != nil {
		return err
	}
	if err := only(m, "values", "strict", "message"); err != nil {
		return err
	}
	v, ok := m["values"]
	if !ok || v.Kind != model.ArrayValue {
		return errs.New(errs.Configuration, "enum requires a list of possible values")
	}
	list, ok := v.Interface().([]any)
	if !ok {
		return errs.New(errs.Configuration, "enum values must be a list, got %s", v.String())
	}
	a.Values = list
	if a.Strict, err = boolProp(m, "strict"); err != nil {
		return err
	}
	a.Message, _, err = stringProp(m, "message")
	return err
}

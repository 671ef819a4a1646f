package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags the literal held by a Value.
type ValueKind uint8

const (
	NullValue ValueKind = iota
	BoolValue
	IntValue
	FloatValue
	StringValue
	// IdentValue is a bare identifier such as a constant name or Foo::class,
	// kept as written so file-aware types can resolve it.
	IdentValue
	ArrayValue
)

func (k ValueKind) String() string {
	switch k {
	case NullValue:
		return "null"
	case BoolValue:
		return "bool"
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case StringValue:
		return "string"
	case IdentValue:
		return "identifier"
	case ArrayValue:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a scalar or array literal found in a tag argument list.
type Value struct {
	Kind   ValueKind `msgpack:"k"`
	Bool   bool      `msgpack:"b,omitempty"`
	Int    int64     `msgpack:"i,omitempty"`
	Float  float64   `msgpack:"f,omitempty"`
	Str    string    `msgpack:"s,omitempty"`
	Items  []Value   `msgpack:"l,omitempty"`
	Fields []Field   `msgpack:"m,omitempty"`
}

// Field is a named entry of an argument list or array literal.
type Field struct {
	Key   string `msgpack:"k"`
	Value Value  `msgpack:"v"`
}

// Null returns the null literal.
func Null() Value { return Value{Kind: NullValue} }

// Bool returns a boolean literal.
func Bool(b bool) Value { return Value{Kind: BoolValue, Bool: b} }

// Int returns an integer literal.
func Int(n int64) Value { return Value{Kind: IntValue, Int: n} }

// Float returns a floating point literal.
func Float(f float64) Value { return Value{Kind: FloatValue, Float: f} }

// String returns a string literal.
func String(s string) Value { return Value{Kind: StringValue, Str: s} }

// Ident returns a bare identifier literal.
func Ident(s string) Value { return Value{Kind: IdentValue, Str: s} }

// Array returns an array literal.
func Array(items []Value, fields []Field) Value {
	return Value{Kind: ArrayValue, Items: items, Fields: fields}
}

// AsString returns the text of a string or identifier literal.
func (v Value) AsString() (string, bool) {
	if v.Kind == StringValue || v.Kind == IdentValue {
		return v.Str, true
	}
	return "", false
}

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) {
	if v.Kind == IntValue {
		return v.Int, true
	}
	return 0, false
}

// AsFloat returns v as a float; integers are widened.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case FloatValue:
		return v.Float, true
	case IntValue:
		return float64(v.Int), true
	}
	return 0, false
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	if v.Kind == BoolValue {
		return v.Bool, true
	}
	return false, false
}

// Strings returns the positional items of an array literal as strings.
func (v Value) Strings() ([]string, bool) {
	if v.Kind != ArrayValue {
		return nil, false
	}
	out := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		s, ok := item.AsString()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Interface converts v into plain Go values: nil, bool, int64, float64,
// string, []any (list-only arrays) or map[string]any.
func (v Value) Interface() any {
	switch v.Kind {
	case BoolValue:
		return v.Bool
	case IntValue:
		return v.Int
	case FloatValue:
		return v.Float
	case StringValue, IdentValue:
		return v.Str
	case ArrayValue:
		if len(v.Fields) == 0 {
			items := make([]any, len(v.Items))
			for i, item := range v.Items {
				items[i] = item.Interface()
			}
			return items
		}
		m := make(map[string]any, len(v.Items)+len(v.Fields))
		for i, item := range v.Items {
			m[strconv.Itoa(i)] = item.Interface()
		}
		for _, f := range v.Fields {
			m[f.Key] = f.Value.Interface()
		}
		return m
	default:
		return nil
	}
}

// String renders v in source literal syntax.
func (v Value) String() string {
	switch v.Kind {
	case NullValue:
		return "null"
	case BoolValue:
		return strconv.FormatBool(v.Bool)
	case IntValue:
		return strconv.FormatInt(v.Int, 10)
	case FloatValue:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case StringValue:
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v.Str) + "'"
	case IdentValue:
		return v.Str
	case ArrayValue:
		return "[" + joinEntries(v.Items, v.Fields) + "]"
	default:
		return fmt.Sprintf("<%d>", v.Kind)
	}
}

// MarshalJSON encodes v as its plain Go equivalent.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// MarshalYAML encodes v as its plain Go equivalent.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

func joinEntries(items []Value, fields []Field) string {
	parts := make([]string, 0, len(items)+len(fields))
	for _, item := range items {
		parts = append(parts, item.String())
	}
	for _, f := range fields {
		parts = append(parts, "'"+f.Key+"' => "+f.Value.String())
	}
	return strings.Join(parts, ", ")
}

// Args is the raw argument set of one tag: positional values in order, and
// named values in declaration order.
type Args struct {
	Positional []Value `msgpack:"p,omitempty" json:"positional,omitempty" yaml:"positional,omitempty"`
	Named      []Field `msgpack:"n,omitempty" json:"-" yaml:"-"`
}

// Len returns the total number of arguments.
func (a Args) Len() int {
	return len(a.Positional) + len(a.Named)
}

// At returns the positional argument at index i.
func (a Args) At(i int) (Value, bool) {
	if i < 0 || i >= len(a.Positional) {
		return Value{}, false
	}
	return a.Positional[i], true
}

// Get returns the named argument. Later duplicates win, matching array
// literal semantics.
func (a Args) Get(name string) (Value, bool) {
	for i := len(a.Named) - 1; i >= 0; i-- {
		if a.Named[i].Key == name {
			return a.Named[i].Value, true
		}
	}
	return Value{}, false
}

// NamedMap returns the named arguments as a map.
func (a Args) NamedMap() map[string]Value {
	m := make(map[string]Value, len(a.Named))
	for _, f := range a.Named {
		m[f.Key] = f.Value
	}
	return m
}

// String renders the argument list in source syntax, including parentheses.
func (a Args) String() string {
	return "(" + joinEntries(a.Positional, a.Named) + ")"
}

// MarshalJSON keeps named arguments as an object.
func (a Args) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.plain())
}

// MarshalYAML keeps named arguments as a mapping.
func (a Args) MarshalYAML() (any, error) {
	return a.plain(), nil
}

func (a Args) plain() map[string]any {
	out := make(map[string]any, 2)
	if len(a.Positional) > 0 {
		items := make([]any, len(a.Positional))
		for i, v := range a.Positional {
			items[i] = v.Interface()
		}
		out["positional"] = items
	}
	if len(a.Named) > 0 {
		named := make(map[string]any, len(a.Named))
		for _, f := range a.Named {
			named[f.Key] = f.Value.Interface()
		}
		out["named"] = named
	}
	return out
}

package standard

import (
	"strings"

	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/model"
)

// fileType resolves type references against the declaring file.
type fileType struct {
	file *model.FileIndex
}

func (f *fileType) SetFile(file *model.FileIndex) {
	f.file = file
}

func (f *fileType) resolve(raw string) string {
	if f.file == nil {
		return raw
	}
	return f.file.ResolveType(raw)
}

// Var records the declared type of a field: `@var Type [description]`.
type Var struct {
	fileType `json:"-" yaml:"-"`

	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func (a *Var) ParseBareValue(value string) (map[string]model.Value, error) {
	typ, desc := cut(value)
	return bare("type", typ, "description", desc), nil
}

func (a *Var) Init(args model.Args) error {
	m, err := props(args, "type")
	if err != nil {
		return err
	}
	if err := only(m, "type", "description"); err != nil {
		return err
	}
	typ, ok, err := stringProp(m, "type")
	if err != nil {
		return err
	}
	if !ok || typ == "" {
		return errs.New(errs.Configuration, "var requires a type property")
	}
	a.Type = a.resolve(typ)
	a.Description, _, err = stringProp(m, "description")
	return err
}

// Param records a parameter of a method: `@param Type $name [description]`.
type Param struct {
	fileType `json:"-" yaml:"-"`

	Type        string `json:"type" yaml:"type"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func (a *Param) ParseBareValue(value string) (map[string]model.Value, error) {
	return typedName(value), nil
}

func (a *Param) Init(args model.Args) error {
	typ, name, desc, err := initTypedName(args, "param")
	if err != nil {
		return err
	}
	a.Type, a.Name, a.Description = a.resolve(typ), name, desc
	return nil
}

// Return records the result type of a method: `@return Type [description]`.
type Return struct {
	fileType `json:"-" yaml:"-"`

	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func (a *Return) ParseBareValue(value string) (map[string]model.Value, error) {
	typ, desc := cut(value)
	return bare("type", typ, "description", desc), nil
}

func (a *Return) Init(args model.Args) error {
	m, err := props(args, "type")
	if err != nil {
		return err
	}
	if err := only(m, "type", "description"); err != nil {
		return err
	}
	typ, ok, err := stringProp(m, "type")
	if err != nil {
		return err
	}
	if !ok || typ == "" {
		return errs.New(errs.Configuration, "return requires a type property")
	}
	a.Type = a.resolve(typ)
	a.Description, _, err = stringProp(m, "description")
	return err
}

// Property declares a magic field on a type:
// `@property Type $name [description]`.
type Property struct {
	fileType `json:"-" yaml:"-"`

	Type        string `json:"type" yaml:"type"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ReadOnly    bool   `json:"read_only,omitempty" yaml:"read_only,omitempty"`
	WriteOnly   bool   `json:"write_only,omitempty" yaml:"write_only,omitempty"`
}

func (a *Property) ParseBareValue(value string) (map[string]model.Value, error) {
	return typedName(value), nil
}

func (a *Property) Init(args model.Args) error {
	typ, name, desc, err := initTypedName(args, "property")
	if err != nil {
		return err
	}
	a.Type, a.Name, a.Description = a.resolve(typ), name, desc
	return nil
}

// Method declares a magic method on a type:
// `@method [static] [Type] name([params]) [description]`.
type Method struct {
	fileType `json:"-" yaml:"-"`

	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Params      string `json:"params,omitempty" yaml:"params,omitempty"`
	Static      bool   `json:"static,omitempty" yaml:"static,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ParseBareValue splits a method signature. A value without a parameter
// list yields an empty mapping and Init reports the missing name.
func (a *Method) ParseBareValue(value string) (map[string]model.Value, error) {
	value = strings.TrimSpace(value)
	open := strings.IndexByte(value, '(')
	closing := strings.LastIndexByte(value, ')')
	if open < 0 || closing < open {
		return map[string]model.Value{}, nil
	}

	head := strings.Fields(value[:open])
	if len(head) == 0 {
		return map[string]model.Value{}, nil
	}
	m := bare(
		"name", head[len(head)-1],
		"params", strings.TrimSpace(value[open+1:closing]),
		"description", strings.TrimSpace(value[closing+1:]),
	)
	head = head[:len(head)-1]
	if len(head) > 0 && head[0] == "static" {
		m["static"] = model.Bool(true)
		head = head[1:]
	}
	if len(head) > 0 {
		m["type"] = model.String(strings.Join(head, " "))
	}
	return m, nil
}

func (a *Method) Init(args model.Args) error {
	m, err := props(args, "type", "name")
	if err != nil {
		return err
	}
	if err := only(m, "type", "name", "params", "static", "description"); err != nil {
		return err
	}
	name, ok, err := stringProp(m, "name")
	if err != nil {
		return err
	}
	if !ok || name == "" {
		return errs.New(errs.Configuration, "method requires a name property")
	}
	typ, _, err := stringProp(m, "type")
	if err != nil {
		return err
	}
	if typ != "" {
		typ = a.resolve(typ)
	}
	a.Type, a.Name = typ, name
	if a.Params, _, err = stringProp(m, "params"); err != nil {
		return err
	}
	if a.Static, err = boolProp(m, "static"); err != nil {
		return err
	}
	a.Description, _, err = stringProp(m, "description")
	return err
}

func cut(value string) (first, rest string) {
	first, rest, _ = strings.Cut(strings.TrimSpace(value), " ")
	return first, strings.TrimSpace(rest)
}

// typedName splits "Type $name description". A malformed value yields an
// empty mapping and Init reports what is missing.
func typedName(value string) map[string]model.Value {
	fields := strings.SplitN(strings.TrimSpace(value), " ", 3)
	if len(fields) < 2 {
		return map[string]model.Value{}
	}
	desc := ""
	if len(fields) == 3 {
		desc = strings.TrimSpace(fields[2])
	}
	return bare("type", fields[0], "name", strings.TrimPrefix(fields[1], "$"), "description", desc)
}

func initTypedName(args model.Args, tag string) (typ, name, desc string, err error) {
	m, err := props(args, "type", "name")
	if err != nil {
		return "", "", "", err
	}
	if err := only(m, "type", "name", "description"); err != nil {
		return "", "", "", err
	}
	typ, ok, err := stringProp(m, "type")
	if err != nil {
		return "", "", "", err
	}
	if !ok || typ == "" {
		return "", "", "", errs.New(errs.Configuration, "%s requires a type property", tag)
	}
	name, ok, err = stringProp(m, "name")
	if err != nil {
		return "", "", "", err
	}
	if !ok || name == "" {
		return "", "", "", errs.New(errs.Configuration, "%s requires a name property", tag)
	}
	desc, _, err = stringProp(m, "description")
	return typ, name, desc, err
}

// bare builds a named-value mapping from key/value pairs, skipping empty
// values.
func bare(pairs ...string) map[string]model.Value {
	m := make(map[string]model.Value, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			m[pairs[i]] = model.String(pairs[i+1])
		}
	}
	return m
}

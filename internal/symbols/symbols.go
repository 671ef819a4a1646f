// Package symbols holds the declared types of a scanned project.
package symbols

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/phobologic/annotate/internal/discover"
	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/graph"
	"github.com/phobologic/annotate/internal/model"
)

// IndexSource supplies the index of one source file.
type IndexSource interface {
	FileIndex(path string) (*model.FileIndex, error)
}

// Table maps qualified type names to their declarations. The zero value is
// not usable; call New.
type Table struct {
	decls map[string]*model.TypeDecl
	lower map[string]string
}

// New returns an empty table holding decls.
func New(decls ...model.TypeDecl) (*Table, error) {
	t := &Table{
		decls: make(map[string]*model.TypeDecl),
		lower: make(map[string]string),
	}
	if err := t.Add(decls...); err != nil {
		return nil, err
	}
	return t, nil
}

// Add registers declarations. Declaring the same type twice is an error.
func (t *Table) Add(decls ...model.TypeDecl) error {
	for i := range decls {
		d := decls[i]
		d.Name = model.Key(d.Name)
		d.Parent = model.Key(d.Parent)
		if prev, dup := t.decls[d.Name]; dup {
			return errs.New(errs.Configuration, "type %s declared in both %s and %s", d.Name, prev.File, d.File).
				WithContext(errs.CtxType, d.Name)
		}
		t.decls[d.Name] = &d
		t.lower[strings.ToLower(d.Name)] = d.Name
	}
	return nil
}

// Lookup returns the declaration of name. Type names are matched exactly
// first and case-insensitively otherwise.
func (t *Table) Lookup(name string) (*model.TypeDecl, bool) {
	name = model.Key(name)
	if d, ok := t.decls[name]; ok {
		return d, true
	}
	if exact, ok := t.lower[strings.ToLower(name)]; ok {
		return t.decls[exact], true
	}
	return nil, false
}

// Len returns the number of declared types.
func (t *Table) Len() int { return len(t.decls) }

// Names returns the declared type names, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.decls))
	for name := range t.decls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decls returns copies of every declaration, sorted by name.
func (t *Table) Decls() []model.TypeDecl {
	decls := make([]model.TypeDecl, 0, len(t.decls))
	for _, name := range t.Names() {
		decls = append(decls, *t.decls[name])
	}
	return decls
}

// Graph returns the inheritance graph of the table.
func (t *Table) Graph() *graph.Graph {
	return graph.Build(t.Decls())
}

// HasMethod reports whether class or one of its ancestors declares method.
func (t *Table) HasMethod(class, method string) bool {
	return t.walk(class, func(d *model.TypeDecl) bool { return d.HasMethod(method) })
}

// HasProperty reports whether class or one of its ancestors declares the
// field.
func (t *Table) HasProperty(class, property string) bool {
	return t.walk(class, func(d *model.TypeDecl) bool { return d.HasProperty(property) })
}

func (t *Table) walk(class string, fn func(*model.TypeDecl) bool) bool {
	seen := make(map[string]bool)
	d, ok := t.Lookup(class)
	for ok && !seen[d.Name] {
		if fn(d) {
			return true
		}
		seen[d.Name] = true
		if d.Parent == "" {
			return false
		}
		d, ok = t.Lookup(d.Parent)
	}
	return false
}

// Validate reports extends cycles as a configuration error.
func (t *Table) Validate() error {
	cycles := t.Graph().Cycles()
	if len(cycles) == 0 {
		return nil
	}
	parts := make([]string, len(cycles))
	for i, c := range cycles {
		parts[i] = strings.Join(append(c, c[0]), " -> ")
	}
	return errs.New(errs.Configuration, "inheritance cycle: %s", strings.Join(parts, "; ")).
		WithContext(errs.CtxType, cycles[0][0])
}

// Build discovers the PHP files under root, obtains each file's index from
// source and registers the declared types. Paths handed to source are
// joined with root.
func (t *Table) Build(ctx context.Context, root string, source IndexSource, opts discover.Options) error {
	files, err := discover.Files(root, opts)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx, err := source.FileIndex(filepath.Join(root, f.Path))
		if err != nil {
			return err
		}
		if err := t.Add(idx.Types...); err != nil {
			return err
		}
	}
	return t.Validate()
}

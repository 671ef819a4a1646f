package metadata

import (
	"strings"

	"go.uber.org/zap"

	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/model"
)

// ClassMetadata returns the metadata of a type, including instances
// inherited from its ancestors. An optional filter keeps only instances of
// the given type (or its subtypes), or with the given @name.
func (m *Manager) ClassMetadata(class string, filter ...string) ([]Instance, error) {
	return m.query(model.Class, class, "", filter)
}

// MethodMetadata returns the metadata of a member function.
func (m *Manager) MethodMetadata(class, method string, filter ...string) ([]Instance, error) {
	return m.query(model.Method, class, method, filter)
}

// PropertyMetadata returns the metadata of a field. The name may be given
// with or without the leading $.
func (m *Manager) PropertyMetadata(class, property string, filter ...string) ([]Instance, error) {
	return m.query(model.Property, class, strings.TrimPrefix(property, "$"), filter)
}

func (m *Manager) query(kind model.Kind, class, member string, filter []string) ([]Instance, error) {
	class = model.Key(class)
	decl, ok := m.symbols.Lookup(class)
	if !ok {
		return nil, errs.New(errs.NotFound, "undefined class %s", class).WithContext(errs.CtxType, class)
	}
	if decl.Kind == model.InterfaceType || decl.Kind == model.TraitType {
		return nil, errs.New(errs.NotFound, "reading metadata from %s %s is not supported", decl.Kind, class).
			WithContext(errs.CtxType, class)
	}

	switch kind {
	case model.Method:
		name, ok := m.findMember(decl, kind, member)
		if !ok {
			return nil, errs.New(errs.NotFound, "undefined method %s::%s()", class, member).
				WithContext(errs.CtxKey, model.MethodKey(class, member))
		}
		member = name
	case model.Property:
		if _, ok := m.findMember(decl, kind, member); !ok {
			return nil, errs.New(errs.NotFound, "undefined property %s::$%s", class, member).
				WithContext(errs.CtxKey, model.PropertyKey(class, member))
		}
	}

	instances, err := m.metadata(kind, decl, member)
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 || filter[0] == "" {
		return instances, nil
	}
	return m.Filter(instances, filter[0])
}

// findMember looks for a member on decl and its ancestors and returns its
// declared spelling. Method names match case-insensitively.
func (m *Manager) findMember(decl *model.TypeDecl, kind model.Kind, member string) (string, bool) {
	seen := make(map[string]bool)
	for decl != nil && !seen[decl.Name] {
		seen[decl.Name] = true
		if kind == model.Method {
			for _, name := range decl.Methods {
				if strings.EqualFold(name, member) {
					return name, true
				}
			}
		} else if decl.HasProperty(member) {
			return member, true
		}
		decl = m.parentOf(decl)
	}
	return "", false
}

func (m *Manager) parentOf(decl *model.TypeDecl) *model.TypeDecl {
	if decl.Parent == "" {
		return nil
	}
	parent, ok := m.symbols.Lookup(decl.Parent)
	if !ok {
		return nil
	}
	return parent
}

// metadata computes and memoizes the instances for one declaration key.
// Inherited instances of the ancestors come first, in ancestor order.
func (m *Manager) metadata(kind model.Kind, decl *model.TypeDecl, member string) ([]Instance, error) {
	key := model.MemberKey(kind, decl.Name, member)
	if instances, ok := m.instances[key]; ok {
		return instances, nil
	}
	if m.resolving[key] {
		return nil, errs.New(errs.Configuration, "inheritance cycle through %s", key).WithContext(errs.CtxKey, key)
	}
	m.resolving[key] = true
	defer delete(m.resolving, key)

	if kind != model.Class {
		if _, err := m.metadata(model.Class, decl, ""); err != nil {
			return nil, err
		}
	}

	var merged []Instance
	if parent := m.parentOf(decl); parent != nil {
		inherit := kind == model.Class
		if !inherit {
			_, inherit = m.findMember(parent, kind, member)
		}
		if inherit {
			parentMember := member
			if kind == model.Method {
				parentMember, _ = m.findMember(parent, kind, member)
			}
			inherited, err := m.metadata(kind, parent, parentMember)
			if err != nil {
				return nil, err
			}
			for _, inst := range inherited {
				usage, err := m.Usage(inst.Type)
				if err != nil {
					return nil, err
				}
				if usage.Inherited {
					merged = append(merged, inst)
				}
			}
		}
	}

	own, err := m.instantiate(decl, key)
	if err != nil {
		return nil, err
	}
	merged = append(merged, own...)

	instances, err := m.applyConstraints(merged, kind, key)
	if err != nil {
		return nil, err
	}

	m.instances[key] = instances
	m.logger.Debug("metadata resolved", zap.String("key", key), zap.Int("count", len(instances)))
	return instances, nil
}

// instantiate constructs the instances declared directly under key in the
// file that declares decl.
func (m *Manager) instantiate(decl *model.TypeDecl, key string) ([]Instance, error) {
	if decl.File == "" {
		return nil, nil
	}
	file, err := m.FileIndex(decl.File)
	if err != nil {
		return nil, err
	}

	specs := file.Tags[key]
	instances := make([]Instance, 0, len(specs))
	for _, spec := range specs {
		t, err := m.lookupType(spec.Type)
		if err != nil {
			return nil, errs.AddContext(err, errs.CtxKey, key)
		}
		a := t.New()
		if fa, ok := a.(FileAware); ok {
			fa.SetFile(file.InNamespace(model.NamespaceOf(decl.Name)))
		}
		if err := a.Init(spec.Args); err != nil {
			return nil, errs.Wrap(err, errs.Configuration, "initializing @%s on %s", spec.Name, key).
				WithContext(errs.CtxType, t.Name).
				WithContext(errs.CtxKey, key)
		}
		instances = append(instances, Instance{Type: t.Name, Name: spec.Name, Annotation: a})
	}
	return instances, nil
}

// applyConstraints checks every instance against its usage. A
// non-repeatable instance followed by another of the same type is dropped
// when the type is inherited, since the later one overrides it, and is an
// error otherwise.
func (m *Manager) applyConstraints(instances []Instance, kind model.Kind, key string) ([]Instance, error) {
	result := make([]Instance, 0, len(instances))
outer:
	for i, inst := range instances {
		usage, err := m.Usage(inst.Type)
		if err != nil {
			return nil, err
		}
		if !usage.Allows(kind) {
			return nil, errs.New(errs.Configuration, "%s cannot be applied to %s %s", inst.Type, kind, key).
				WithContext(errs.CtxType, inst.Type).
				WithContext(errs.CtxKind, string(kind)).
				WithContext(errs.CtxKey, key)
		}
		if !usage.Multiple {
			for _, later := range instances[i+1:] {
				if later.Type != inst.Type {
					continue
				}
				if usage.Inherited {
					continue outer
				}
				return nil, errs.New(errs.Configuration, "only one %s may be applied to %s %s", inst.Type, kind, key).
					WithContext(errs.CtxType, inst.Type).
					WithContext(errs.CtxKey, key)
			}
		}
		result = append(result, inst)
	}
	return result, nil
}

// Usage returns the usage constraint of a metadata type. A registered
// constraint wins; otherwise the type's declaration must carry exactly one
// @usage tag, or inherit one from its supertype.
func (m *Manager) Usage(typeName string) (*Usage, error) {
	typeName = model.Key(typeName)
	if u, ok := m.usages[typeName]; ok {
		return u, nil
	}
	if t, ok := m.types[typeName]; ok && t.Usage != nil {
		m.usages[typeName] = t.Usage
		return t.Usage, nil
	}

	decl, ok := m.symbols.Lookup(typeName)
	if !ok {
		return nil, errs.New(errs.Configuration, "no usage declared for %s", typeName).WithContext(errs.CtxType, typeName)
	}

	instances, err := m.metadata(model.Class, decl, "")
	if err != nil {
		return nil, err
	}

	var usage *Usage
	switch len(instances) {
	case 0:
		if decl.Parent == "" {
			return nil, errs.New(errs.Configuration, "%s must have exactly one usage declaration", typeName).
				WithContext(errs.CtxType, typeName)
		}
		usage, err = m.Usage(decl.Parent)
		if err != nil {
			return nil, err
		}
	case 1:
		u, ok := instances[0].Annotation.(*Usage)
		if !ok {
			return nil, errs.New(errs.Configuration, "%s must have exactly one usage declaration and no other metadata", typeName).
				WithContext(errs.CtxType, typeName)
		}
		usage = u
	default:
		return nil, errs.New(errs.Configuration, "%s must have exactly one usage declaration and no other metadata", typeName).
			WithContext(errs.CtxType, typeName)
	}

	m.usages[typeName] = usage
	return usage, nil
}

// Filter keeps the instances matching typeOrName: "@name" resolves a tag
// name first; anything else is a qualified type name. Subtypes known to the
// symbol table match their ancestors.
func (m *Manager) Filter(instances []Instance, typeOrName string) ([]Instance, error) {
	target := model.Key(typeOrName)
	if strings.HasPrefix(typeOrName, "@") {
		name, ok := m.resolveName(typeOrName[1:])
		if !ok {
			return nil, nil
		}
		target = name
	}

	var result []Instance
	for _, inst := range instances {
		if m.isA(inst.Type, target) {
			result = append(result, inst)
		}
	}
	return result, nil
}

func (m *Manager) isA(typeName, target string) bool {
	seen := make(map[string]bool)
	for typeName != "" && !seen[typeName] {
		if typeName == target {
			return true
		}
		seen[typeName] = true
		decl, ok := m.symbols.Lookup(typeName)
		if !ok {
			return false
		}
		typeName = model.Key(decl.Parent)
	}
	return false
}

// Package model defines core data structures for annotate.
package model

import (
	"sort"
	"strings"
)

// Kind is the kind of declaration a tag is attached to.
type Kind string

const (
	Class    Kind = "class"
	Method   Kind = "method"
	Property Kind = "property"
)

// TypeKind indicates the syntactic kind of a declared type.
type TypeKind string

const (
	ClassType     TypeKind = "class"
	InterfaceType TypeKind = "interface"
	TraitType     TypeKind = "trait"
	EnumType      TypeKind = "enum"
)

// Separator is the namespace separator of the scanned source language.
const Separator = `\`

// Key returns the declaration key of a type.
func Key(class string) string {
	return strings.TrimPrefix(class, Separator)
}

// NamespaceOf returns the namespace part of a qualified type name.
func NamespaceOf(class string) string {
	class = Key(class)
	if i := strings.LastIndex(class, Separator); i >= 0 {
		return class[:i]
	}
	return ""
}

// MethodKey returns the declaration key of a member function: Type::name.
func MethodKey(class, method string) string {
	return Key(class) + "::" + method
}

// PropertyKey returns the declaration key of a field: Type::$name.
func PropertyKey(class, property string) string {
	return Key(class) + "::$" + strings.TrimPrefix(property, "$")
}

// MemberKey returns the declaration key for the given kind.
// The member name is ignored for Class.
func MemberKey(kind Kind, class, member string) string {
	switch kind {
	case Method:
		return MethodKey(class, member)
	case Property:
		return PropertyKey(class, member)
	default:
		return Key(class)
	}
}

// TagSpec is one parsed tag occurrence: the resolved metadata type name and
// its raw arguments. Name is the tag name as written in the comment.
type TagSpec struct {
	Name string `msgpack:"n" json:"name" yaml:"name"`
	Type string `msgpack:"t" json:"type" yaml:"type"`
	Args Args   `msgpack:"a" json:"args" yaml:"args"`
}

// TypeDecl records a type declared in a source file.
type TypeDecl struct {
	Name       string   `msgpack:"n" json:"name" yaml:"name"`
	Kind       TypeKind `msgpack:"k" json:"kind" yaml:"kind"`
	Parent     string   `msgpack:"p,omitempty" json:"parent,omitempty" yaml:"parent,omitempty"`
	File       string   `msgpack:"f" json:"file" yaml:"file"`
	Methods    []string `msgpack:"m,omitempty" json:"methods,omitempty" yaml:"methods,omitempty"`
	Properties []string `msgpack:"v,omitempty" json:"properties,omitempty" yaml:"properties,omitempty"`
}

// HasMethod reports whether the method is declared directly on the type.
func (d *TypeDecl) HasMethod(name string) bool {
	for _, m := range d.Methods {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}

// HasProperty reports whether the field is declared directly on the type.
func (d *TypeDecl) HasProperty(name string) bool {
	name = strings.TrimPrefix(name, "$")
	for _, p := range d.Properties {
		if p == name {
			return true
		}
	}
	return false
}

// FileIndex is the per-file map from declaration key to tag specifications,
// plus the facts needed to resolve type references found in tag values.
type FileIndex struct {
	Path      string               `msgpack:"path" json:"path" yaml:"path"`
	Namespace string               `msgpack:"ns" json:"namespace" yaml:"namespace"`
	Uses      map[string]string    `msgpack:"uses" json:"uses" yaml:"uses"`
	Tags      map[string][]TagSpec `msgpack:"tags" json:"tags" yaml:"tags"`
	Types     []TypeDecl           `msgpack:"types,omitempty" json:"types,omitempty" yaml:"types,omitempty"`
}

// NewFileIndex returns an empty index for path.
func NewFileIndex(path string) *FileIndex {
	return &FileIndex{
		Path: path,
		Uses: make(map[string]string),
		Tags: make(map[string][]TagSpec),
	}
}

// Keys returns the declaration keys in sorted order.
func (f *FileIndex) Keys() []string {
	keys := make([]string, 0, len(f.Tags))
	for k := range f.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InNamespace returns f as seen from code declared in namespace ns.
// Namespace holds the last namespace statement of the file, so a file with
// several namespace blocks is read through the declaring type's namespace.
// The alias table is shared by every block.
func (f *FileIndex) InNamespace(ns string) *FileIndex {
	if ns == f.Namespace {
		return f
	}
	c := *f
	c.Namespace = ns
	return &c
}

var scalarTypes = map[string]struct{}{
	"bool":    {},
	"boolean": {},
	"int":     {},
	"integer": {},
	"float":   {},
	"double":  {},
	"string":  {},
	"mixed":   {},
	"array":   {},
}

// ResolveType turns a type reference written inside a tag value into a
// fully qualified name, using the file's alias table and namespace.
// Scalar type names are returned untouched and a trailing [] is preserved.
func (f *FileIndex) ResolveType(raw string) string {
	base, suffix, _ := strings.Cut(raw, "[]")
	hasSuffix := len(base) < len(raw)

	if _, ok := scalarTypes[strings.ToLower(base)]; !ok {
		switch fq, ok := f.Uses[base]; {
		case ok:
			base = fq
		case strings.HasPrefix(base, Separator):
			base = strings.TrimPrefix(base, Separator)
		case f.Namespace != "":
			base = f.Namespace + Separator + base
		}
	}

	if hasSuffix {
		return base + "[]" + suffix
	}
	return base
}

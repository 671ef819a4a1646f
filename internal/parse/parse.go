package parse

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/phobologic/annotate/internal/docblock"
	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/lang"
	"github.com/phobologic/annotate/internal/model"
)

type state int

const (
	stateScan state = iota
	stateNamespaceName
	stateClassName
	stateScanClass
	stateMember
	stateMethodName
	stateMemberList
)

// Indexer turns source files into file indexes. Tag names found in
// documentation comments are resolved through Resolver.
type Indexer struct {
	Resolver docblock.Resolver
	// Language defaults to PHP.
	Language *lang.Language
}

// IndexFile reads and indexes the file at path.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (*model.FileIndex, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.NotFound, "reading %s", path)
	}
	return ix.Index(ctx, source, path)
}

// Index tokenizes source and associates every documentation comment's tags
// with the declaration that follows it. Tags left over at the end of the
// file are a parse error.
func (ix *Indexer) Index(ctx context.Context, source []byte, path string) (*model.FileIndex, error) {
	l := ix.Language
	if l == nil {
		l = lang.Languages["php"]
	}

	idx := model.NewFileIndex(path)
	if len(source) == 0 {
		return idx, nil
	}

	parser := l.NewParser()
	defer parser.Close()
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	m := &machine{resolver: ix.Resolver, idx: idx}
	for _, tok := range Tokens(l, tree.RootNode(), source) {
		if err := m.feed(tok); err != nil {
			return nil, errs.AddContext(err, errs.CtxPath, path)
		}
	}
	if err := m.finish(); err != nil {
		return nil, errs.AddContext(err, errs.CtxPath, path)
	}
	return idx, nil
}

type machine struct {
	resolver docblock.Resolver
	idx      *model.FileIndex

	state     state
	nesting   int
	nsParts   []string
	class     *model.TypeDecl
	inExtends bool
	pending   []model.TagSpec
}

func (m *machine) feed(tok Token) error {
	if tok.Kind == TokDocComment {
		tags, err := docblock.Tags(tok.Text, m.resolver)
		if err != nil {
			return fmt.Errorf("line %d: %w", tok.Line, err)
		}
		m.pending = append(m.pending, tags...)
		return nil
	}

	switch m.state {
	case stateScan:
		switch tok.Kind {
		case TokNamespace:
			m.nsParts = m.nsParts[:0]
			m.state = stateNamespaceName
		case TokTypeKeyword:
			m.class = &model.TypeDecl{Kind: model.TypeKind(tok.Text), File: m.idx.Path}
			m.state = stateClassName
		case TokUse:
			parseUse(tok.Text, m.idx.Uses)
		}

	case stateNamespaceName:
		switch tok.Kind {
		case TokName:
			m.nsParts = append(m.nsParts, tok.Text)
		case TokTerminator, TokOpenBrace:
			m.idx.Namespace = strings.Trim(strings.Join(m.nsParts, ""), model.Separator)
			m.state = stateScan
		}

	case stateClassName:
		if tok.Kind == TokName {
			m.class.Name = m.qualify(tok.Text)
			m.flush(m.class.Name)
			m.inExtends = false
			m.state = stateScanClass
		}

	case stateScanClass:
		m.scanClass(tok)

	case stateMember:
		switch tok.Kind {
		case TokVariable:
			name := strings.TrimPrefix(tok.Text, "$")
			m.class.Properties = appendUnique(m.class.Properties, name)
			m.flush(model.PropertyKey(m.class.Name, name))
			m.state = stateMemberList
		case TokFunction:
			m.state = stateMethodName
		case TokConst:
			m.state = stateScanClass
		}

	case stateMethodName:
		if tok.Kind == TokName {
			m.class.Methods = appendUnique(m.class.Methods, tok.Text)
			m.flush(model.MethodKey(m.class.Name, tok.Text))
			m.state = stateScanClass
		}

	// Further fields of one declaration (public $a, $b;) are declared but
	// carry no tags: the comment belongs to the first.
	case stateMemberList:
		switch tok.Kind {
		case TokVariable:
			m.class.Properties = appendUnique(m.class.Properties, strings.TrimPrefix(tok.Text, "$"))
		case TokTerminator, TokOpenBrace, TokCloseBrace:
			m.state = stateScanClass
		}
	}

	if m.state >= stateScanClass {
		m.braces(tok)
	}
	return nil
}

func (m *machine) scanClass(tok Token) {
	switch tok.Kind {
	case TokVisibility:
		m.state = stateMember
	case TokFunction:
		m.state = stateMethodName
	case TokExtends:
		m.inExtends = m.nesting == 0
	case TokName:
		if m.inExtends && m.class.Parent == "" {
			m.class.Parent = model.Key(m.idx.ResolveType(tok.Text))
		}
	case TokOpenBrace:
		m.inExtends = false
	}
}

func (m *machine) braces(tok Token) {
	switch tok.Kind {
	case TokOpenBrace:
		m.nesting++
	case TokCloseBrace:
		m.nesting--
		if m.nesting == 0 {
			m.closeClass()
		}
	}
}

func (m *machine) closeClass() {
	if m.class != nil && m.class.Name != "" {
		m.idx.Types = append(m.idx.Types, *m.class)
	}
	m.class = nil
	m.inExtends = false
	m.state = stateScan
}

// flush moves the pending tags under key. Keys without tags are not stored.
func (m *machine) flush(key string) {
	if len(m.pending) > 0 {
		m.idx.Tags[key] = append(m.idx.Tags[key], m.pending...)
	}
	m.pending = nil
}

func (m *machine) finish() error {
	if m.class != nil && m.state >= stateScanClass {
		m.closeClass()
	}
	if len(m.pending) == 0 {
		return nil
	}
	names := make([]string, len(m.pending))
	for i, t := range m.pending {
		names[i] = "@" + t.Name
	}
	return errs.New(errs.Parse, "unassociated tags at end of file %s: %s", m.idx.Path, strings.Join(names, ", "))
}

func (m *machine) qualify(name string) string {
	if m.idx.Namespace == "" {
		return name
	}
	return m.idx.Namespace + model.Separator + name
}

func appendUnique(list []string, name string) []string {
	for _, s := range list {
		if s == name {
			return list
		}
	}
	return append(list, name)
}

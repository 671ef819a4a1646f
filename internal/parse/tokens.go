// Package parse indexes the tags found in documentation comments of
// source files, keyed by the declaration each comment precedes.
package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/annotate/internal/lang"
)

// TokenKind classifies the lexical tokens the indexer cares about.
type TokenKind int

const (
	TokDocComment TokenKind = iota
	TokNamespace
	TokTypeKeyword
	TokExtends
	TokFunction
	TokVisibility
	TokConst
	TokName
	TokVariable
	TokOpenBrace
	TokCloseBrace
	TokTerminator
	TokUse
)

func (k TokenKind) String() string {
	switch k {
	case TokDocComment:
		return "doc-comment"
	case TokNamespace:
		return "namespace"
	case TokTypeKeyword:
		return "type-keyword"
	case TokExtends:
		return "extends"
	case TokFunction:
		return "function"
	case TokVisibility:
		return "visibility"
	case TokConst:
		return "const"
	case TokName:
		return "name"
	case TokVariable:
		return "variable"
	case TokOpenBrace:
		return "{"
	case TokCloseBrace:
		return "}"
	case TokTerminator:
		return ";"
	case TokUse:
		return "use"
	default:
		return "unknown"
	}
}

// Token is one lexical token of a source file.
type Token struct {
	Kind TokenKind
	Text string
	Line int
}

// atomic nodes are emitted as a single token and never descended into.
var atomic = map[string]bool{
	"comment":                   true,
	"name":                      true,
	"qualified_name":            true,
	"namespace_name":            true,
	"variable_name":             true,
	"visibility_modifier":       true,
	"var_modifier":              true,
	"string":                    true,
	"encapsed_string":           true,
	"heredoc":                   true,
	"nowdoc":                    true,
	"namespace_use_declaration": true,
}

var typeDeclarations = map[string]string{
	"class_declaration":     "class",
	"interface_declaration": "interface",
	"trait_declaration":     "trait",
	"enum_declaration":      "enum",
}

// Tokens walks the syntax tree in document order and returns the token
// stream the indexer consumes. Keywords are only reported in the syntactic
// position that gives them meaning, so `class` inside `Foo::class` or a
// closure's `function` never reach the state machine.
func Tokens(l *lang.Language, root *sitter.Node, source []byte) []Token {
	var toks []Token
	walk(l, root, nil, nil, source, &toks)
	return toks
}

func walk(l *lang.Language, node, parent, grandparent *sitter.Node, source []byte, toks *[]Token) {
	if node.IsMissing() {
		return
	}

	typ := node.Type()
	if atomic[typ] || node.ChildCount() == 0 {
		if tok, ok := classify(l, node, parent, grandparent, source); ok {
			*toks = append(*toks, tok)
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walk(l, node.Child(i), node, parent, source, toks)
	}
}

func classify(l *lang.Language, node, parent, grandparent *sitter.Node, source []byte) (Token, bool) {
	typ := node.Type()
	parentType := ""
	if parent != nil {
		parentType = parent.Type()
	}

	tok := Token{Line: int(node.StartPoint().Row) + 1}
	switch typ {
	case "comment":
		text := lang.NodeText(node, source)
		if l.IsDocComment == nil || !l.IsDocComment(text) {
			return tok, false
		}
		tok.Kind, tok.Text = TokDocComment, text
	case "name", "qualified_name", "namespace_name":
		tok.Kind, tok.Text = TokName, lang.NodeText(node, source)
	case "variable_name":
		// Plain parameters never declare fields.
		if parentType == "simple_parameter" || parentType == "variadic_parameter" {
			return tok, false
		}
		tok.Kind, tok.Text = TokVariable, lang.NodeText(node, source)
	case "visibility_modifier", "var_modifier", "var":
		tok.Kind, tok.Text = TokVisibility, lang.NodeText(node, source)
	case "namespace_use_declaration":
		if !fileLevel(parent, grandparent) {
			return tok, false
		}
		tok.Kind, tok.Text = TokUse, lang.CollapseWhitespace(lang.NodeText(node, source))
	case "{":
		tok.Kind, tok.Text = TokOpenBrace, typ
	case "}":
		tok.Kind, tok.Text = TokCloseBrace, typ
	case ";":
		tok.Kind, tok.Text = TokTerminator, typ
	case "class", "interface", "trait", "enum":
		if typeDeclarations[parentType] != typ {
			return tok, false
		}
		tok.Kind, tok.Text = TokTypeKeyword, typ
	case "function":
		if parentType != "method_declaration" {
			return tok, false
		}
		tok.Kind, tok.Text = TokFunction, typ
	case "namespace":
		if parentType != "namespace_definition" {
			return tok, false
		}
		tok.Kind, tok.Text = TokNamespace, typ
	case "extends":
		if parentType != "base_clause" {
			return tok, false
		}
		tok.Kind, tok.Text = TokExtends, typ
	case "const":
		if parentType != "const_declaration" {
			return tok, false
		}
		tok.Kind, tok.Text = TokConst, typ
	default:
		return tok, false
	}
	return tok, true
}

// fileLevel reports whether a use declaration sits at file scope: directly
// in the program, or in the body of a braced namespace.
func fileLevel(parent, grandparent *sitter.Node) bool {
	if parent == nil {
		return false
	}
	switch parent.Type() {
	case "program":
		return true
	case "compound_statement":
		return grandparent != nil && grandparent.Type() == "namespace_definition"
	}
	return false
}

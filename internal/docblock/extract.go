// Package docblock extracts @tag directives from documentation comments.
package docblock

import (
	"regexp"
	"strings"

	"github.com/phobologic/annotate/internal/errs"
)

// RawTag is one directive found in a comment, before name resolution.
// Value holds the single-line text or the parenthesized argument list
// (including the outer parentheses); HasValue is false for a bare @flag.
type RawTag struct {
	Name     string
	Value    string
	HasValue bool
}

type scanState int

const (
	stateScan scanState = iota
	stateSkip
	stateName
	stateCopyLine
	stateCopyArgs
)

var decorationRe = regexp.MustCompile(`(?m)^[/*# \t]+`)

// Extract scans the text of one documentation comment and returns its tags
// in source order. Lines that begin with anything other than @ are prose and
// are ignored. An argument list whose parentheses never balance is a parse
// error.
func Extract(comment string) ([]RawTag, error) {
	text := strings.ReplaceAll(comment, "\r\n", "\n")
	text = strings.TrimSuffix(strings.TrimSpace(text), "*/")
	text = strings.TrimSpace(decorationRe.ReplaceAllString(text, "")) + "\n"

	var (
		tags    []RawTag
		state   = stateScan
		nesting int
		quote   byte
		escaped bool
		name    strings.Builder
		value   strings.Builder
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch state {
		case stateScan:
			switch {
			case c == '@':
				name.Reset()
				value.Reset()
				state = stateName
			case c != '\n' && c != ' ' && c != '\t':
				state = stateSkip
			}

		case stateSkip:
			if c == '\n' {
				state = stateScan
			}

		case stateName:
			switch {
			case isNameChar(c):
				name.WriteByte(c)
			case c == ' ' || c == '\t':
				state = stateCopyLine
			case c == '(':
				nesting = 1
				quote = 0
				value.WriteByte(c)
				state = stateCopyArgs
			case c == '\n':
				tags = appendTag(tags, name.String(), "", false)
				state = stateScan
			default:
				state = stateSkip
			}

		case stateCopyLine:
			if c == '\n' {
				v := strings.TrimSpace(value.String())
				tags = appendTag(tags, name.String(), v, v != "")
				state = stateScan
			} else {
				value.WriteByte(c)
			}

		case stateCopyArgs:
			value.WriteByte(c)
			switch {
			case quote != 0:
				if escaped {
					escaped = false
				} else if c == '\\' {
					escaped = true
				} else if c == quote {
					quote = 0
				}
			case c == '\'' || c == '"':
				quote = c
			case c == '(':
				nesting++
			case c == ')':
				nesting--
				if nesting == 0 {
					tags = appendTag(tags, name.String(), value.String(), true)
					state = stateScan
				}
			}
		}
	}

	if state == stateCopyArgs {
		return nil, errs.New(errs.Parse, "unbalanced argument list for @%s: %s", name.String(), strings.TrimSpace(value.String()))
	}

	return tags, nil
}

func appendTag(tags []RawTag, name, value string, hasValue bool) []RawTag {
	if name == "" {
		return tags
	}
	return append(tags, RawTag{Name: name, Value: value, HasValue: hasValue})
}

func isNameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '\\'
}

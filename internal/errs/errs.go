// Package errs defines the error taxonomy shared by the indexer, the cache
// and the metadata manager.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error.
type Kind string

const (
	// Parse covers malformed tag syntax, unbalanced argument lists and
	// tags left unattached at the end of a file.
	Parse Kind = "parse error"
	// Resolution covers unknown metadata types and types lacking a
	// capability the source requires.
	Resolution Kind = "resolution error"
	// Configuration covers missing or violated usage constraints and
	// invalid initialization arguments.
	Configuration Kind = "configuration error"
	// NotFound covers undeclared types, methods and properties.
	NotFound Kind = "not found"
	// Cache covers storage failures of a cache backend.
	Cache Kind = "cache error"
)

// Context keys attached with WithContext.
const (
	CtxPath = "path"
	CtxKey  = "key"
	CtxType = "type"
	CtxKind = "kind"
)

// Error is a classified error with optional cause and structured context.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Context map[string]any
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Err != nil {
		// A cause of the same kind is not prefixed twice.
		msg += ": " + strings.TrimPrefix(e.Err.Error(), string(e.Kind)+": ")
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithContext records a structured fact about the failure and returns e.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind caused by err.
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether any error in err's chain is an *Error of kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// AddContext attaches a context value to the first *Error in err's chain.
// Errors outside the taxonomy are returned unchanged.
func AddContext(err error, key string, value any) error {
	var e *Error
	if errors.As(err, &e) {
		e.WithContext(key, value)
	}
	return err
}

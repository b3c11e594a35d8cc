// Package apperr defines the error taxonomy shared by every layer of bruch.
//
// Every failure that leaves the core is one of three kinds:
//   - NotFound: a lookup by key yielded nothing (drives "create it?" prompts)
//   - Validation: input was rejected before the store was touched
//   - Storage: the persistence engine failed (not initialized, I/O, quota)
//
// Callers branch on the kind with IsNotFound, IsValidation and IsStorage,
// which use errors.As and therefore see through fmt.Errorf wrapping.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes an Error.
type Kind string

const (
	// KindNotFound indicates a missing record.
	KindNotFound Kind = "NOT_FOUND"

	// KindValidation indicates malformed input.
	KindValidation Kind = "VALIDATION"

	// KindStorage indicates a persistence failure.
	KindStorage Kind = "STORAGE"
)

// Error is the structured error returned by the core packages.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Op names the failing operation (e.g. "get article").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound creates a KindNotFound error.
func NotFound(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a KindValidation error.
func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps err as a KindStorage error.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsValidation reports whether err is a Validation error.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsStorage reports whether err is a Storage error.
func IsStorage(err error) bool {
	return KindOf(err) == KindStorage
}

// Package domainerrors provides the shared error vocabulary for domain and
// service layers. Errors carry a classification code so callers can branch on
// the kind of failure without string matching, and wrap an underlying cause
// for diagnostics.
//
// Stores and infrastructure return sentinel errors (pkg/platform/sentinel);
// services translate those into domain errors with the appropriate code.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation: input failed a structural or semantic validation rule.
	CodeValidation Code = "validation"
	// CodeInvalidInput: malformed primitive input (empty id, bad format).
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound: referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict: the operation collides with existing state
	// (duplicate identity, assignment already active).
	CodeConflict Code = "conflict"
	// CodeInvariantViolation: the operation would break a structural
	// invariant (role graph cycle, core permission mutation).
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal: unexpected internal fault.
	CodeInternal Code = "internal"
)

// Error is a classified domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error with a code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a code and message. Returns nil if
// err is nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Package errors provides structured error types for loomview.
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: input validation failures and rejected operations
//   - PARSE_*/VALIDATION_*: document loading failures
//   - INVARIANT_*: programming defects in the state engine
//   - LAYOUT_*/RENDER_*: bridge failures surfaced by the coordinator
//
// Usage:
//
//	err := errors.New(errors.ErrCodeInvalidContainer, "unknown container %q", id)
//	if errors.Is(err, errors.ErrCodeInvalidContainer) {
//	    // handle the rejected operation
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeParse, origErr, "cannot parse %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation and rejected operations
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidContainer Code = "INVALID_CONTAINER_ID"
	ErrCodeHiddenAncestor   Code = "HIDDEN_ANCESTOR"

	// Resource lookup
	ErrCodeNotFound Code = "NOT_FOUND"

	// Document loading
	ErrCodeParse      Code = "PARSE_FAILED"
	ErrCodeValidation Code = "VALIDATION_FAILED"
	ErrCodeIO         Code = "IO_FAILED"

	// State engine defects
	ErrCodeInvariant Code = "INVARIANT_VIOLATION"

	// Bridge failures
	ErrCodeLayout Code = "LAYOUT_FAILED"
	ErrCodeRender Code = "RENDER_FAILED"

	// Everything else
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err carries the given error code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

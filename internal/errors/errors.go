// Package errors provides the coded error taxonomy for notegraph.
//
// Every user-correctable condition carries a machine-readable Code so the CLI
// and the MCP server can react to it without string matching:
//
//   - CONFIG_ERROR: malformed exclusion rule, style pairs, or config file
//   - TOOL_MISSING: a required external program is not on PATH
//   - EMPTY_ORIGIN: an origin-based selection was requested without an origin note
//   - STORE_ERROR: the note store failed a query
//   - NOT_INDEXED: no store exists at the expected location
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfig, "invalid exclude rule of type %T", v)
//	if errors.Is(err, errors.ErrCodeConfig) {
//	    // report and stop before touching the store
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	ErrCodeConfig      Code = "CONFIG_ERROR"
	ErrCodeToolMissing Code = "TOOL_MISSING"
	ErrCodeEmptyOrigin Code = "EMPTY_ORIGIN"
	ErrCodeStore       Code = "STORE_ERROR"
	ErrCodeNotIndexed  Code = "NOT_INDEXED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Tool    string // Expected program name, set for ErrCodeToolMissing
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

// Config is shorthand for New(ErrCodeConfig, ...).
func Config(format string, args ...any) *Error {
	return New(ErrCodeConfig, format, args...)
}

// ToolMissing reports that the named program could not be found.
func ToolMissing(tool string, cause error) *Error {
	return &Error{
		Code:    ErrCodeToolMissing,
		Message: fmt.Sprintf("executable %q not found", tool),
		Tool:    tool,
		Cause:   cause,
	}
}

// EmptyOrigin reports an origin-based selection with no origin note.
func EmptyOrigin() *Error {
	return New(ErrCodeEmptyOrigin, "no origin note given for a connected-component graph")
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
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

// Package domainerrors provides coded domain errors. A code identifies the
// failure class for API mapping and task reporting; the optional parameter map
// carries structured detail (config id, UID, system name) for operator-facing
// result messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable result code.
type Code string

const (
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL"

	// Synchronization result codes surfaced to callers and the task host.
	CodeSyncIsRunning Code = "SYNCHRONIZATION_IS_RUNNING"
	CodeSyncNotFound  Code = "SYNCHRONIZATION_NOT_FOUND"
	CodeSyncCancelled Code = "SYNCHRONIZATION_CANCELLED"

	// Provisioning result codes.
	CodeSystemReadonly Code = "PROVISIONING_SYSTEM_READONLY"
)

// Error is a domain error with a result code and optional parameters.
type Error struct {
	Code    Code
	Message string
	Params  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithParam returns the error with a parameter added; the receiver is mutated
// so calls chain off New/Wrap.
func (e *Error) WithParam(key, value string) *Error {
	if e.Params == nil {
		e.Params = make(map[string]string)
	}
	e.Params[key] = value
	return e
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domErr *Error
	if errors.As(err, &domErr) {
		return domErr.Code == code
	}
	return false
}

// CodeOf extracts the result code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var domErr *Error
	if errors.As(err, &domErr) {
		return domErr.Code
	}
	return CodeInternal
}

// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Common error types and error handling utilities for the parfor library.

package api

import "fmt"

// Common errors used across the library.
var (
	ErrRuntimeClosed  = fmt.Errorf("runtime is closed")
	ErrExecutorClosed = fmt.Errorf("executor is closed")
	ErrTypeMismatch   = fmt.Errorf("argument type mismatch")
	ErrNotSupported   = fmt.Errorf("operation not supported")
	ErrBounds         = fmt.Errorf("index out of range")
	ErrConfig         = fmt.Errorf("invalid configuration")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeTypeMismatch
	ErrCodeNotSupported
	ErrCodeBounds
	ErrCodeConfig
	ErrCodeClosed
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Is maps structured errors onto the package sentinels so callers can use
// errors.Is without inspecting codes directly.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTypeMismatch:
		return e.Code == ErrCodeTypeMismatch
	case ErrNotSupported:
		return e.Code == ErrCodeNotSupported
	case ErrBounds:
		return e.Code == ErrCodeBounds
	case ErrConfig:
		return e.Code == ErrCodeConfig
	case ErrRuntimeClosed, ErrExecutorClosed:
		return e.Code == ErrCodeClosed
	}
	return false
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new structured error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

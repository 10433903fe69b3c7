// Package errors provides structured error types for the watershed engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the library packages
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (fatal for a run)
//   - *_NOT_FOUND: Missing resources (a missing dataset is fatal for its region)
//   - CYCLE_DETECTED, UNKNOWN_NODE: Malformed river network input
//   - RASTER_FAILED, TIMEOUT: External delineation tool failures
//   - INTERNAL_*: Unexpected internal errors
//
// Per-outlet conditions such as "not in any region" are not errors; they are
// recorded as failure records and never abort a batch.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidOutlet, "latitude out of range: %f", lat)
//	if errors.Is(err, errors.ErrCodeInvalidOutlet) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeDatasetNotFound, origErr, "catchments for region %d", region)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidOutlet Code = "INVALID_OUTLET"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeDatasetNotFound Code = "DATASET_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	// River network errors
	ErrCodeCycleDetected Code = "CYCLE_DETECTED"
	ErrCodeUnknownNode   Code = "UNKNOWN_NODE"
	ErrCodeTooManyNodes  Code = "TOO_MANY_NODES"

	// External collaborator errors
	ErrCodeRasterFailed Code = "RASTER_FAILED"
	ErrCodeNetwork      Code = "NETWORK_ERROR"
	ErrCodeTimeout      Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// ValidationError collects every problem found in an outlet batch so the
// caller can report them all at once.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "invalid outlet batch"
	case 1:
		return "invalid outlet batch: " + e.Problems[0]
	default:
		return fmt.Sprintf("invalid outlet batch: %s (and %d more)", e.Problems[0], len(e.Problems)-1)
	}
}

// Code returns the error code for this error type.
func (e *ValidationError) Code() Code {
	return ErrCodeInvalidOutlet
}

// Add records a problem.
func (e *ValidationError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Err returns e if any problem was recorded, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a cradle error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrFileNotFound      ErrorCode = "FILE_NOT_FOUND"      // 404
	ErrNameAlreadyExists ErrorCode = "NAME_ALREADY_EXISTS" // 409
	ErrConflict          ErrorCode = "CONFLICT"            // 409
	ErrValidationFailed  ErrorCode = "VALIDATION_FAILED"   // 422
	ErrCancelled         ErrorCode = "CANCELLED"           // 499
	ErrInternal          ErrorCode = "INTERNAL"            // 500
	ErrStoreFailure      ErrorCode = "STORE_FAILURE"       // 503
)

// CradleError represents a structured error with code, status, and details.
type CradleError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is kept for errors.Unwrap but never shown to callers.
	cause error
}

// Error implements the error interface.
func (e *CradleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *CradleError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CradleError {
	return &CradleError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a name record cannot be found.
func NewNotFound(identifier string) *CradleError {
	return &CradleError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("name not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *CradleError {
	return &CradleError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNameAlreadyExists creates a 409 error for a duplicate (text, category) pair.
func NewNameAlreadyExists(text, category string) *CradleError {
	return &CradleError{
		Code:    ErrNameAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("name %q already exists in category %q", text, category),
		Details: map[string]any{"text": text, "category": category},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *CradleError {
	return &CradleError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewValidationFailed creates a 422 error listing the reason for each rejected field.
func NewValidationFailed(fields map[string]string) *CradleError {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	details := make(map[string]any, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fields[k]))
		details[k] = fields[k]
	}

	return &CradleError{
		Code:    ErrValidationFailed,
		Status:  422,
		Message: "validation failed: " + strings.Join(parts, "; "),
		Details: details,
	}
}

// NewCancelled creates an error for an operation stopped by its context.
func NewCancelled(operation string) *CradleError {
	return &CradleError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewStoreFailure creates a 503 error for a failed read or write against the name store.
// The cause is kept for logging; callers only see a generic message.
func NewStoreFailure(err error) *CradleError {
	return &CradleError{
		Code:    ErrStoreFailure,
		Status:  503,
		Message: "name store unavailable",
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CradleError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CradleError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a CradleError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CradleError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// CodeOf returns the code of a CradleError, or ErrInternal for any other error.
func CodeOf(err error) ErrorCode {
	var cErr *CradleError
	if stderrors.As(err, &cErr) {
		return cErr.Code
	}
	return ErrInternal
}

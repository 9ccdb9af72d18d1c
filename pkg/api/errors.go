package api

import (
	"errors"
	"fmt"
)

// ErrorCode represents the category of an application error.
type ErrorCode string

const (
	ErrorCodeBadRequest      ErrorCode = "bad_request"
	ErrorCodeNotFound        ErrorCode = "not_found"
	ErrorCodeUpstreamFailure ErrorCode = "upstream_failure"
	ErrorCodeInternal        ErrorCode = "internal"
)

// AppError is the single error type surfaced to HTTP clients. Message is
// safe to show to users; the optional cause is kept for logs only and is
// never serialized.
type AppError struct {
	Code    ErrorCode
	Message string
	cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the diagnostic cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Cause returns the diagnostic cause, if any.
func (e *AppError) Cause() error {
	return e.cause
}

// WithCause returns a copy of e that carries cause for diagnostics.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.cause = cause
	return &cp
}

// Response returns the client-facing envelope for e.
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{Code: e.Code, Message: e.Message}
}

// ErrorResponse is the JSON error envelope written to clients.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// NewBadRequest creates an AppError for malformed input or bundles.
func NewBadRequest(message string) *AppError {
	return &AppError{Code: ErrorCodeBadRequest, Message: message}
}

// NewNotFound creates an AppError for unknown routes and resources.
func NewNotFound(message string) *AppError {
	return &AppError{Code: ErrorCodeNotFound, Message: message}
}

// NewUpstreamFailure creates an AppError for failures of the render backend.
func NewUpstreamFailure(message string) *AppError {
	return &AppError{Code: ErrorCodeUpstreamFailure, Message: message}
}

// NewInternal creates an AppError for unexpected server failures.
func NewInternal(message string) *AppError {
	return &AppError{Code: ErrorCodeInternal, Message: message}
}

// AsAppError returns err as an *AppError. Errors that do not wrap an
// AppError are reported as internal with a generic message and err as the
// cause, so their text never reaches a client.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal("internal server error").WithCause(err)
}

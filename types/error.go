package types

import "fmt"

// ErrorCode represents a unified error code across the pipeline.
type ErrorCode string

// Capability error codes
const (
	ErrTransientIO           ErrorCode = "TRANSIENT_IO"
	ErrRateLimited           ErrorCode = "RATE_LIMITED"
	ErrCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE"
	ErrGeneration            ErrorCode = "GENERATION_ERROR"
	ErrEmbedding             ErrorCode = "EMBEDDING_ERROR"
	ErrNotFound              ErrorCode = "NOT_FOUND"
)

// Pipeline error codes
const (
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrAuditRejected ErrorCode = "AUDIT_REJECTED"
	ErrTimeout       ErrorCode = "TIMEOUT"
	ErrCancelled     ErrorCode = "CANCELLED"
	ErrInternal      ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Stage     string    `json:"stage,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: defaultRetryable(code)}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithStage records the stage the error surfaced from.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// defaultRetryable maps each code to its default retry behavior.
// Only transient I/O conditions are retried within a stage attempt window.
func defaultRetryable(code ErrorCode) bool {
	switch code {
	case ErrTransientIO, ErrRateLimited:
		return true
	default:
		return false
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// CodeOf extracts the error code from an error.
func CodeOf(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

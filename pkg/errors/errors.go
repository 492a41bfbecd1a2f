package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures so callers can decide between retrying,
// failing a single item, or aborting the whole run.
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeChecksum    ErrorType = "checksum_mismatch"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeFilesystem  ErrorType = "filesystem"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeIncomplete  ErrorType = "inventory_incomplete"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a remote API or export error with type information.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a typed error without an HTTP status code.
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Newf creates a typed error with a formatted message.
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable checks if an error type should be retried. A checksum mismatch
// most often indicates a corrupted transfer, so it counts as transient.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeChecksum:
		return true
	default:
		return false
	}
}

// IsFatal reports whether an error type must abort the whole run rather than
// fail a single item.
func IsFatal(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeAuth, ErrorTypeFilesystem:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}

// TypeOf extracts the ErrorType from an error chain, returning
// ErrorTypeUnknown for untyped errors.
func TypeOf(err error) ErrorType {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// IsRetryableError reports whether the error chain carries a retryable typed error.
func IsRetryableError(err error) bool {
	return IsRetryable(TypeOf(err))
}

// IsFatalError reports whether the error chain carries a run-fatal typed error.
func IsFatalError(err error) bool {
	return IsFatal(TypeOf(err))
}

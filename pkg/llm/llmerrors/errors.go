// Package llmerrors provides structured error classification and retry
// configuration for completion backend interactions.
package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType categorizes completion backend failures for retry and
// fallback decisions.
type ErrorType int8

const (
	// Retryable error types.

	// ErrorTypeTimeout represents a per-call deadline expiry.
	ErrorTypeTimeout ErrorType = iota
	// ErrorTypeUnavailable represents the backend being unreachable
	// (connection refused, 5xx, EOF).
	ErrorTypeUnavailable
	// ErrorTypeRateLimit represents rate limiting (429, quota exceeded).
	ErrorTypeRateLimit
	// ErrorTypeEmptyResponse represents HTTP 200 with no content.
	ErrorTypeEmptyResponse

	// Non-retryable error types.

	// ErrorTypeMalformed represents output that could not be parsed into
	// the requested structure.
	ErrorTypeMalformed
	// ErrorTypeAuth represents authentication failures (401/403).
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents malformed requests (too long, policy).
	ErrorTypeBadPrompt
	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeUnavailable:
		return "unavailable"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeMalformed:
		return "malformed_output"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// RetryConfig defines exponential backoff configuration for an error type.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultRetryConfigs provides default retry configurations per error type.
//
//nolint:gochecknoglobals // Configuration map - acceptable for package defaults
var DefaultRetryConfigs = map[ErrorType]RetryConfig{
	ErrorTypeTimeout: {
		MaxRetries:    1,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeUnavailable: {
		MaxRetries:    2,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeRateLimit: {
		MaxRetries:    3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeEmptyResponse: {
		MaxRetries:    2,
		InitialDelay:  1 * time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeMalformed: {MaxRetries: 0, BackoffFactor: 1.0},
	ErrorTypeAuth:      {MaxRetries: 0, BackoffFactor: 1.0},
	ErrorTypeBadPrompt: {MaxRetries: 0, BackoffFactor: 1.0},
	ErrorTypeUnknown: {
		MaxRetries:    1,
		InitialDelay:  1 * time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
}

// Error represents a classified completion backend error.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("backend error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("backend error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether this error type should be retried.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeMalformed, ErrorTypeAuth, ErrorTypeBadPrompt:
		return false
	default:
		return true
	}
}

// GetRetryConfig returns the retry configuration for this error type.
func (e *Error) GetRetryConfig() RetryConfig {
	if config, exists := DefaultRetryConfigs[e.Type]; exists {
		return config
	}
	return DefaultRetryConfigs[ErrorTypeUnknown]
}

// Is checks whether an error is classified as the given type.
func Is(err error, errorType ErrorType) bool {
	var berr *Error
	if errors.As(err, &berr) {
		return berr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if unclassified.
func TypeOf(err error) ErrorType {
	var berr *Error
	if errors.As(err, &berr) {
		return berr.Type
	}
	return ErrorTypeUnknown
}

// NewError creates a new classified backend error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithStatus creates a new classified backend error with HTTP status.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewErrorWithCause creates a new classified backend error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{
		Type:    errorType,
		Err:     cause,
		Message: message,
	}
}

// Classify maps an arbitrary error to a classified backend error. Errors
// already classified pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var berr *Error
	if errors.As(err, &berr) {
		return berr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorWithCause(ErrorTypeTimeout, err, "deadline exceeded")
	}
	if errors.Is(err, context.Canceled) {
		return NewErrorWithCause(ErrorTypeUnknown, err, "request canceled")
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return NewErrorWithCause(ErrorTypeTimeout, err, err.Error())
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return NewErrorWithCause(ErrorTypeRateLimit, err, err.Error())
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "api key"):
		return NewErrorWithCause(ErrorTypeAuth, err, err.Error())
	case strings.Contains(msg, "connection") || strings.Contains(msg, "eof") ||
		strings.Contains(msg, "500") || strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") || strings.Contains(msg, "504"):
		return NewErrorWithCause(ErrorTypeUnavailable, err, err.Error())
	case strings.Contains(msg, "empty response"):
		return NewErrorWithCause(ErrorTypeEmptyResponse, err, err.Error())
	default:
		return NewErrorWithCause(ErrorTypeUnknown, err, err.Error())
	}
}

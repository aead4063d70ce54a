// Package llmerrors provides structured error classification and retry
// configuration for LLM API interactions.
package llmerrors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents different categories of LLM errors for retry logic.
type ErrorType int8

const (
	// Retryable error types.

	// ErrorTypeRateLimit represents rate limiting errors (429, quota exceeded).
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient represents transient errors (5xx, EOF, connection reset).
	ErrorTypeTransient
	// ErrorTypeEmptyResponse represents HTTP 200 but no content errors.
	ErrorTypeEmptyResponse

	// Non-retryable error types.

	// ErrorTypeAuth represents authentication errors (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents malformed request errors.
	ErrorTypeBadPrompt
	// ErrorTypeTimeout represents an exceeded request deadline. The engine
	// fails the step without extra implicit retries, so this is
	// non-retryable at the transport layer.
	ErrorTypeTimeout
	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Default per-type retry budgets.
const (
	DefaultEmptyResponseRetries = 3
	DefaultRateLimitRetries     = 5
	DefaultTransientRetries     = 3
	DefaultUnknownRetries       = 1
)

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
//nolint:gochecknoglobals // package defaults
var DefaultRetryConfigs = map[ErrorType]RetryConfig{
	ErrorTypeEmptyResponse: {
		MaxRetries:    DefaultEmptyResponseRetries,
		InitialDelay:  2 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeRateLimit: {
		MaxRetries:    DefaultRateLimitRetries,
		InitialDelay:  1 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeTransient: {
		MaxRetries:    DefaultTransientRetries,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeAuth:      {MaxRetries: 0, BackoffFactor: 1.0},
	ErrorTypeBadPrompt: {MaxRetries: 0, BackoffFactor: 1.0},
	ErrorTypeTimeout:   {MaxRetries: 0, BackoffFactor: 1.0},
	ErrorTypeUnknown: {
		MaxRetries:    DefaultUnknownRetries,
		InitialDelay:  1 * time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
}

// Error represents a classified LLM error with retry metadata.
type Error struct {
	Err        error
	Message    string
	Type       ErrorType
	StatusCode int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("LLM error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("LLM error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("LLM error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether this error type should be retried.
// Blocklist approach: everything is retryable UNLESS explicitly not.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeBadPrompt, ErrorTypeTimeout:
		return false
	default:
		return true
	}
}

// GetRetryConfig returns the retry configuration for this error type.
func (e *Error) GetRetryConfig() RetryConfig {
	if cfg, exists := DefaultRetryConfigs[e.Type]; exists {
		return cfg
	}
	return DefaultRetryConfigs[ErrorTypeUnknown]
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of err, or ErrorTypeUnknown if unclassified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// NewError creates a new classified LLM error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// NewErrorWithStatus creates a classified LLM error with an HTTP status.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{Type: errorType, StatusCode: statusCode, Message: message}
}

// NewErrorWithCause creates a classified LLM error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

package llmerrors

import (
	"context"
	"errors"
	"strings"
)

// Classify maps an arbitrary SDK/transport error to a structured Error.
// Provider SDKs rarely expose typed errors, so classification falls back
// to status-code and text-pattern matching.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorWithCause(ErrorTypeTimeout, err, "request deadline exceeded")
	}
	if errors.Is(err, context.Canceled) {
		return NewErrorWithCause(ErrorTypeTransient, err, "request canceled")
	}

	errStr := err.Error()
	if statusCode := extractStatusCode(errStr); statusCode != 0 {
		switch statusCode {
		case 401, 403:
			return NewErrorWithStatus(ErrorTypeAuth, statusCode, "authentication failed - check API key")
		case 429:
			return NewErrorWithStatus(ErrorTypeRateLimit, statusCode, "rate limit exceeded")
		case 400:
			return NewErrorWithStatus(ErrorTypeBadPrompt, statusCode, "bad request - check prompt format and parameters")
		case 500, 502, 503, 504:
			return NewErrorWithStatus(ErrorTypeTransient, statusCode, "server error")
		}
	}

	lower := strings.ToLower(errStr)
	switch {
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "temporary"),
		strings.Contains(errStr, "EOF"),
		strings.Contains(lower, "reset"):
		return NewErrorWithCause(ErrorTypeTransient, err, "network or connection error")
	case strings.Contains(lower, "rate"),
		strings.Contains(lower, "quota"),
		strings.Contains(lower, "overloaded"):
		return NewErrorWithCause(ErrorTypeRateLimit, err, "rate limiting detected")
	case strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "api key"),
		strings.Contains(lower, "auth"):
		return NewErrorWithCause(ErrorTypeAuth, err, "authentication error")
	case strings.Contains(lower, "invalid"),
		strings.Contains(lower, "malformed"),
		strings.Contains(lower, "too large"):
		return NewErrorWithCause(ErrorTypeBadPrompt, err, "prompt or request error")
	}

	return NewErrorWithCause(ErrorTypeUnknown, err, "unclassified error")
}

// extractStatusCode attempts to extract an HTTP status code from an error
// string; SDKs usually include it in the message.
func extractStatusCode(errStr string) int {
	patterns := []string{"status code: ", "status: ", "http ", "code "}
	lower := strings.ToLower(errStr)

	for _, pattern := range patterns {
		idx := strings.Index(lower, pattern)
		if idx == -1 {
			continue
		}
		start := idx + len(pattern)
		if start >= len(errStr) {
			continue
		}
		end := start + 3
		if end > len(errStr) {
			end = len(errStr)
		}
		switch {
		case strings.HasPrefix(errStr[start:end], "400"):
			return 400
		case strings.HasPrefix(errStr[start:end], "401"):
			return 401
		case strings.HasPrefix(errStr[start:end], "403"):
			return 403
		case strings.HasPrefix(errStr[start:end], "429"):
			return 429
		case strings.HasPrefix(errStr[start:end], "500"):
			return 500
		case strings.HasPrefix(errStr[start:end], "502"):
			return 502
		case strings.HasPrefix(errStr[start:end], "503"):
			return 503
		case strings.HasPrefix(errStr[start:end], "504"):
			return 504
		}
	}
	return 0
}

package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"nil passes through", nil, ErrorTypeUnknown},
		{"deadline exceeded", context.DeadlineExceeded, ErrorTypeTimeout},
		{"wrapped deadline", fmt.Errorf("call failed: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"canceled", context.Canceled, ErrorTypeTransient},
		{"status 429", errors.New("request failed with status code: 429"), ErrorTypeRateLimit},
		{"status 401", errors.New("request failed, status: 401"), ErrorTypeAuth},
		{"status 400", errors.New("http 400 bad request"), ErrorTypeBadPrompt},
		{"status 503", errors.New("upstream returned status code: 503"), ErrorTypeTransient},
		{"connection reset text", errors.New("read tcp: connection reset by peer"), ErrorTypeTransient},
		{"eof text", errors.New("unexpected EOF"), ErrorTypeTransient},
		{"quota text", errors.New("monthly quota exceeded"), ErrorTypeRateLimit},
		{"overloaded text", errors.New("the model is overloaded"), ErrorTypeRateLimit},
		{"api key text", errors.New("missing api key"), ErrorTypeAuth},
		{"invalid request text", errors.New("invalid request payload"), ErrorTypeBadPrompt},
		{"unclassified", errors.New("something odd happened"), ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := Classify(tt.err)
			if tt.err == nil {
				if classified != nil {
					t.Fatalf("Classify(nil) = %v, want nil", classified)
				}
				return
			}
			if classified.Type != tt.expected {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, classified.Type, tt.expected)
			}
		})
	}
}

func TestClassifyPreservesExistingError(t *testing.T) {
	original := NewErrorWithStatus(ErrorTypeRateLimit, 429, "slow down")
	wrapped := fmt.Errorf("outer: %w", original)

	classified := Classify(wrapped)
	if classified != original {
		t.Error("an already classified error must pass through unchanged")
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeRateLimit, ErrorTypeTransient, ErrorTypeEmptyResponse, ErrorTypeUnknown}
	for _, et := range retryable {
		if !(&Error{Type: et}).IsRetryable() {
			t.Errorf("%s should be retryable", et)
		}
	}
	nonRetryable := []ErrorType{ErrorTypeAuth, ErrorTypeBadPrompt, ErrorTypeTimeout}
	for _, et := range nonRetryable {
		if (&Error{Type: et}).IsRetryable() {
			t.Errorf("%s should not be retryable", et)
		}
	}
}

func TestGetRetryConfig(t *testing.T) {
	cfg := (&Error{Type: ErrorTypeRateLimit}).GetRetryConfig()
	if cfg.MaxRetries != DefaultRateLimitRetries {
		t.Errorf("rate limit retries = %d, want %d", cfg.MaxRetries, DefaultRateLimitRetries)
	}
	if cfg.BackoffFactor <= 1.0 {
		t.Errorf("expected exponential backoff, got factor %.1f", cfg.BackoffFactor)
	}

	cfg = (&Error{Type: ErrorTypeTimeout}).GetRetryConfig()
	if cfg.MaxRetries != 0 {
		t.Errorf("timeouts must not be retried at the transport layer, got %d", cfg.MaxRetries)
	}
}

func TestIsAndTypeOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewError(ErrorTypeAuth, "bad key"))

	if !Is(err, ErrorTypeAuth) {
		t.Error("Is must see through wrapping")
	}
	if Is(err, ErrorTypeRateLimit) {
		t.Error("Is must not match a different type")
	}
	if got := TypeOf(err); got != ErrorTypeAuth {
		t.Errorf("TypeOf = %s, want auth", got)
	}
	if got := TypeOf(errors.New("plain")); got != ErrorTypeUnknown {
		t.Errorf("TypeOf(plain) = %s, want unknown", got)
	}
}

func TestErrorString(t *testing.T) {
	err := NewError(ErrorTypeRateLimit, "slow down")
	want := "LLM error (rate_limit): slow down"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

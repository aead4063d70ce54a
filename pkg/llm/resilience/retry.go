// Package resilience wraps llm.Client implementations with retry and timeout
// behavior. Retry budgets and backoff are chosen per classified error type.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"assistant/pkg/llm"
	"assistant/pkg/llm/llmerrors"
	"assistant/pkg/logx"
)

// RetryableClient wraps an llm.Client with classified retry logic.
type RetryableClient struct {
	client llm.Client
	logger *logx.Logger
}

var _ llm.Client = (*RetryableClient)(nil)

// NewRetryableClient creates a retrying client. A nil logger disables retry
// logging.
func NewRetryableClient(client llm.Client, logger *logx.Logger) *RetryableClient {
	return &RetryableClient{client: client, logger: logger}
}

// RetryMiddleware returns retry wrapping as an llm.Middleware.
func RetryMiddleware(logger *logx.Logger) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return NewRetryableClient(next, logger)
	}
}

func (r *RetryableClient) GetModelName() string {
	return r.client.GetModelName()
}

// Complete calls the underlying client, retrying retryable failures with
// per-error-type exponential backoff.
func (r *RetryableClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	var lastErr error
	var retryConfig llmerrors.RetryConfig
	var errorType llmerrors.ErrorType
	startTime := time.Now()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt, retryConfig)
			select {
			case <-ctx.Done():
				return llm.CompletionResponse{}, llmerrors.Classify(ctx.Err())
			case <-time.After(delay):
			}
		}

		attemptStart := time.Now()
		resp, err := r.client.Complete(ctx, req)
		if err == nil {
			if r.logger != nil && attempt > 0 {
				r.logger.Debug("completion succeeded after %d retries in %v", attempt, time.Since(startTime))
			}
			return resp, nil
		}

		lastErr = err
		retryConfig, errorType = retryConfigFor(err)
		isFinal := !shouldRetry(err) || attempt >= retryConfig.MaxRetries

		if r.logger != nil {
			r.logger.Debug("completion attempt %d failed in %v (%s, final=%v): %v",
				attempt+1, time.Since(attemptStart), errorType, isFinal, err)
		}
		if isFinal {
			break
		}
	}

	return llm.CompletionResponse{}, fmt.Errorf("failed after %d retries (%s) in %v: %w",
		retryConfig.MaxRetries, errorType, time.Since(startTime), lastErr)
}

// Stream retries only stream establishment; chunk delivery failures are not
// retried here.
func (r *RetryableClient) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	var lastErr error
	var retryConfig llmerrors.RetryConfig
	var errorType llmerrors.ErrorType

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt, retryConfig)
			select {
			case <-ctx.Done():
				return nil, llmerrors.Classify(ctx.Err())
			case <-time.After(delay):
			}
		}

		ch, err := r.client.Stream(ctx, req)
		if err == nil {
			return ch, nil
		}

		lastErr = err
		retryConfig, errorType = retryConfigFor(err)
		if !shouldRetry(err) || attempt >= retryConfig.MaxRetries {
			break
		}
	}

	return nil, fmt.Errorf("failed to establish stream after %d retries (%s): %w",
		retryConfig.MaxRetries, errorType, lastErr)
}

func shouldRetry(err error) bool {
	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}
	return llmerrors.Classify(err).IsRetryable()
}

func retryConfigFor(err error) (llmerrors.RetryConfig, llmerrors.ErrorType) {
	var llmErr *llmerrors.Error
	if !errors.As(err, &llmErr) {
		llmErr = llmerrors.Classify(err)
	}
	return llmErr.GetRetryConfig(), llmErr.Type
}

// backoffDelay computes exponential backoff with jitter for the given attempt.
func backoffDelay(attempt int, cfg llmerrors.RetryConfig) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	// Up to 25% jitter to avoid synchronized retries.
	delay += delay * 0.25 * rand.Float64()
	return time.Duration(delay)
}

package resilience

import (
	"context"
	"errors"
	"time"

	"assistant/pkg/llm"
	"assistant/pkg/llm/llmerrors"
)

// TimeoutClient bounds each completion call with a deadline. An expired
// deadline surfaces as a non-retryable timeout error.
type TimeoutClient struct {
	client  llm.Client
	timeout time.Duration
}

var _ llm.Client = (*TimeoutClient)(nil)

func NewTimeoutClient(client llm.Client, timeout time.Duration) *TimeoutClient {
	return &TimeoutClient{client: client, timeout: timeout}
}

// TimeoutMiddleware returns deadline wrapping as an llm.Middleware.
func TimeoutMiddleware(timeout time.Duration) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return NewTimeoutClient(next, timeout)
	}
}

func (t *TimeoutClient) GetModelName() string {
	return t.client.GetModelName()
}

func (t *TimeoutClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	if t.timeout <= 0 {
		return t.client.Complete(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.client.Complete(ctx, req)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTimeout, err,
			"completion exceeded "+t.timeout.String())
	}
	return resp, err
}

func (t *TimeoutClient) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	// Streams manage their own lifetime; only establishment is bounded here.
	return t.client.Stream(ctx, req)
}

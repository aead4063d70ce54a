// Package logging provides logging middleware for LLM clients.
package logging

import (
	"context"
	"time"

	"assistant/pkg/llm"
	"assistant/pkg/llm/llmerrors"
	"assistant/pkg/logx"
)

// Middleware logs every completion at debug level and failures at warn level.
func Middleware(logger *logx.Logger) llm.Middleware {
	if logger == nil {
		logger = logx.NewLogger("llm")
	}
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				logger.Debug("completion request: model=%s messages=%d", next.GetModelName(), len(req.Messages))

				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				if err != nil {
					logger.Warn("completion failed: model=%s type=%s duration=%dms err=%v",
						next.GetModelName(), llmerrors.TypeOf(err), duration.Milliseconds(), err)
					if llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse) {
						logEmptyResponseDebugInfo(logger, req)
					}
					return resp, err //nolint:wrapcheck // middleware passes errors through unchanged
				}

				logger.Debug("completion ok: model=%s stop=%s chars=%d duration=%dms",
					next.GetModelName(), resp.StopReason, len(resp.Content), duration.Milliseconds())
				return resp, nil
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				logger.Debug("stream request: model=%s messages=%d", next.GetModelName(), len(req.Messages))
				return next.Stream(ctx, req)
			},
			next.GetModelName,
		)
	}
}

// logEmptyResponseDebugInfo dumps the full prompt so empty responses can be
// diagnosed from logs alone.
func logEmptyResponseDebugInfo(logger *logx.Logger, req llm.CompletionRequest) {
	const maxMessageChars = 10000

	logger.Error("empty response from model, full prompt follows (%d messages)", len(req.Messages))
	for i := range req.Messages {
		msg := &req.Messages[i]
		content := msg.Content
		if len(content) > maxMessageChars {
			content = content[:maxMessageChars] + "\n[truncated]"
		}
		logger.Error("message[%d] role=%s: %s", i, msg.Role, content)
	}
	logger.Error("request details: max_tokens=%d temperature=%v", req.MaxTokens, req.Temperature)
}

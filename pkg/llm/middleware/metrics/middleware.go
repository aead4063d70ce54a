package metrics

import (
	"context"
	"time"

	"assistant/pkg/llm"
	"assistant/pkg/llm/llmerrors"
	"assistant/pkg/utils"
)

// UsageExtractor extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor counts tokens with the shared tokenizer codec.
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	var promptText string
	for i := range req.Messages {
		promptText += req.Messages[i].Content + "\n"
	}
	return utils.CountTokensSimple(promptText), utils.CountTokensSimple(resp.Content)
}

// Middleware records request latency, token usage, success and failure rates,
// and error types for every completion.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, labels LabelProvider) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}
	if labels == nil {
		labels = StaticLabels{}
	}

	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}
				errorType := ""
				if err != nil {
					errorType = llmerrors.TypeOf(err).String()
				}

				recorder.ObserveRequest(
					next.GetModelName(),
					labels.GetPlanID(),
					labels.GetPhase(),
					promptTokens,
					completionTokens,
					err == nil,
					errorType,
					duration,
				)
				return resp, err //nolint:wrapcheck // middleware passes errors through unchanged
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				start := time.Now()
				ch, err := next.Stream(ctx, req)

				// Only stream setup is measured; token counting would
				// require consuming the stream.
				errorType := ""
				if err != nil {
					errorType = llmerrors.TypeOf(err).String()
				}
				recorder.ObserveRequest(
					next.GetModelName(),
					labels.GetPlanID(),
					labels.GetPhase(),
					0, 0,
					err == nil,
					errorType,
					time.Since(start),
				)
				return ch, err //nolint:wrapcheck // middleware passes errors through unchanged
			},
			next.GetModelName,
		)
	}
}

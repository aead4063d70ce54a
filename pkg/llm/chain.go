package llm

import (
	"context"
)

// Middleware wraps a Client with additional behavior. Middlewares are
// composed with Chain to build the processing pipeline.
type Middleware func(next Client) Client

// clientFunc adapts plain functions to the Client interface.
type clientFunc struct {
	complete  func(context.Context, CompletionRequest) (CompletionResponse, error)
	stream    func(context.Context, CompletionRequest) (<-chan StreamChunk, error)
	modelName func() string
}

func (f clientFunc) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return f.complete(ctx, req)
}

func (f clientFunc) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	return f.stream(ctx, req)
}

func (f clientFunc) GetModelName() string {
	return f.modelName()
}

// WrapClient creates a Client from the provided function implementations.
// Helper for middleware implementations that only override some methods.
func WrapClient(
	complete func(context.Context, CompletionRequest) (CompletionResponse, error),
	stream func(context.Context, CompletionRequest) (<-chan StreamChunk, error),
	modelName func() string,
) Client {
	return clientFunc{
		complete:  complete,
		stream:    stream,
		modelName: modelName,
	}
}

// Chain composes middlewares around a base Client. Earlier middlewares are
// outermost: Chain(client, mw1, mw2) yields the call stack
//
//	mw1 -> mw2 -> client
//
// so mw1 sees every request first and may short-circuit before mw2.
func Chain(base Client, middlewares ...Middleware) Client {
	client := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		client = middlewares[i](client)
	}
	return client
}

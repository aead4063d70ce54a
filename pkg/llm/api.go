// Package llm provides the client interface and types for interactions
// with the language-model oracle. Provider implementations live under
// internal/; cross-cutting behavior (retry, logging, metrics) is layered
// with middleware via Chain.
package llm

import (
	"context"
	"fmt"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message providing instructions and context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the requesting side.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message produced by the model.
	RoleAssistant CompletionRole = "assistant"
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Role    CompletionRole
	Content string
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string
	StopReason string // "end_turn", "max_tokens", etc., provider permitting
}

// StreamChunk represents a chunk of streamed completion response.
type StreamChunk struct {
	Error   error
	Content string
	Done    bool
}

// Client defines the interface for language model interactions.
// The call is the engine's sole suspension point: callers carry timeout and
// cancellation through ctx.
type Client interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// Stream generates a completion as a stream of chunks.
	Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error)

	// GetModelName returns the model name for this client.
	GetModelName() string
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleAssistant, Content: content}
}

// ValidateRequest rejects requests no provider can serve. MaxTokens zero
// means the provider's configured default.
func ValidateRequest(in CompletionRequest) error {
	if len(in.Messages) == 0 {
		return fmt.Errorf("message list cannot be empty")
	}
	if in.MaxTokens < 0 {
		return fmt.Errorf("max tokens cannot be negative")
	}
	if in.Temperature < 0.0 || in.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	return nil
}

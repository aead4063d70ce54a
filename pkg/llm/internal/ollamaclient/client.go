// Package ollamaclient adapts the Ollama API to the llm.Client interface for
// locally hosted models.
package ollamaclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"assistant/pkg/llm"
	"assistant/pkg/llm/llmerrors"
)

const defaultEndpoint = "http://localhost:11434"

type Client struct {
	client    *api.Client
	modelName string
	maxTokens int
}

var _ llm.Client = (*Client)(nil)

// New creates a client against an Ollama server. An empty or unparseable
// endpoint falls back to the local default.
func New(endpoint, modelName string, maxTokens int) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		parsed, _ = url.Parse(defaultEndpoint)
	}
	return &Client{
		client:    api.NewClient(parsed, http.DefaultClient),
		modelName: modelName,
		maxTokens: maxTokens,
	}
}

func (c *Client) GetModelName() string {
	return c.modelName
}

func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := llm.ValidateRequest(in); err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "invalid completion request")
	}
	messages, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	options := map[string]any{
		"num_predict": maxTokens,
		"temperature": in.Temperature,
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.modelName,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}

	var response api.ChatResponse
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(err)
	}

	if strings.TrimSpace(response.Message.Content) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "model returned no content")
	}

	return llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: response.DoneReason,
	}, nil
}

func (c *Client) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	resp, err := c.Complete(ctx, in)
	if err != nil {
		return nil, err
	}
	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.StreamChunk{Content: resp.Content}
	ch <- llm.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func convertMessages(messages []llm.CompletionMessage) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "message list cannot be empty")
	}
	result := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		var role string
		switch msg.Role {
		case llm.RoleSystem:
			role = "system"
		case llm.RoleUser:
			role = "user"
		case llm.RoleAssistant:
			role = "assistant"
		default:
			return nil, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt,
				fmt.Sprintf("unsupported message role %q", msg.Role))
		}
		result = append(result, api.Message{Role: role, Content: msg.Content})
	}
	return result, nil
}

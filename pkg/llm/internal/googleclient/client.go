// Package googleclient adapts the Google GenAI SDK to the llm.Client
// interface.
package googleclient

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"assistant/pkg/llm"
	"assistant/pkg/llm/llmerrors"
)

type Client struct {
	client    *genai.Client
	apiKey    string
	modelName string
	maxTokens int
}

var _ llm.Client = (*Client)(nil)

// New creates a Gemini client. SDK client construction needs a context, so it
// is deferred to the first Complete call.
func New(apiKey, modelName string, maxTokens int) *Client {
	return &Client{
		apiKey:    apiKey,
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
	if c.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return llm.CompletionResponse{}, llmerrors.Classify(err)
		}
		c.client = client
	}

	contents, systemInstruction, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temperature := in.Temperature
	//nolint:gosec // max token budgets are validated well below int32 range
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		Temperature:     &temperature,
	}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(err)
	}
	if result == nil || strings.TrimSpace(result.Text()) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "model returned no text content")
	}

	stopReason := ""
	if len(result.Candidates) > 0 {
		stopReason = string(result.Candidates[0].FinishReason)
	}

	return llm.CompletionResponse{
		Content:    result.Text(),
		StopReason: stopReason,
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

func convertMessages(messages []llm.CompletionMessage) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "message list cannot be empty")
	}

	var systemParts []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case llm.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case llm.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			return nil, "", llmerrors.NewError(llmerrors.ErrorTypeBadPrompt,
				fmt.Sprintf("unsupported message role %q", msg.Role))
		}
	}
	if len(contents) == 0 {
		return nil, "", llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "no user or assistant messages in request")
	}
	return contents, strings.Join(systemParts, "\n\n"), nil
}

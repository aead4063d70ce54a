// Package anthropicclient adapts the official Anthropic SDK to the llm.Client
// interface.
package anthropicclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"assistant/pkg/llm"
	"assistant/pkg/llm/llmerrors"
)

type Client struct {
	client    anthropic.Client
	modelName string
	maxTokens int
}

var _ llm.Client = (*Client)(nil)

func New(apiKey, modelName string, maxTokens int) *Client {
	return &Client{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
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
	params, err := c.buildParams(in)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := sb.String()
	if strings.TrimSpace(content) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "model returned no text content")
	}

	return llm.CompletionResponse{
		Content:    content,
		StopReason: string(msg.StopReason),
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

func (c *Client) buildParams(in llm.CompletionRequest) (anthropic.MessageNewParams, error) {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	for _, msg := range in.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case llm.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case llm.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			return anthropic.MessageNewParams{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt,
				fmt.Sprintf("unsupported message role %q", msg.Role))
		}
	}
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "no user or assistant messages in request")
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.modelName),
		MaxTokens:   int64(maxTokens),
		Messages:    ensureAlternation(messages),
		System:      system,
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	return params, nil
}

// ensureAlternation merges consecutive same-role messages; the Messages API
// rejects two adjacent turns with the same role.
func ensureAlternation(messages []anthropic.MessageParam) []anthropic.MessageParam {
	if len(messages) < 2 {
		return messages
	}
	merged := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if len(merged) > 0 && merged[len(merged)-1].Role == msg.Role {
			last := &merged[len(merged)-1]
			last.Content = append(last.Content, msg.Content...)
			continue
		}
		merged = append(merged, msg)
	}
	return merged
}

// Package openaiclient adapts the official OpenAI SDK (Responses API) to the
// llm.Client interface.
package openaiclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"assistant/pkg/llm"
	"assistant/pkg/llm/llmerrors"
)

type Client struct {
	client    openai.Client
	modelName string
	maxTokens int
}

var _ llm.Client = (*Client)(nil)

func New(apiKey, modelName string, maxTokens int) *Client {
	return &Client{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
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

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(err)
	}

	content := resp.OutputText()
	if strings.TrimSpace(content) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "model returned no output text")
	}

	return llm.CompletionResponse{
		Content:    content,
		StopReason: string(resp.Status),
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

func (c *Client) buildParams(in llm.CompletionRequest) (responses.ResponseNewParams, error) {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(in.Messages))
	for _, msg := range in.Messages {
		var role responses.EasyInputMessageRole
		switch msg.Role {
		case llm.RoleSystem:
			role = responses.EasyInputMessageRoleSystem
		case llm.RoleUser:
			role = responses.EasyInputMessageRoleUser
		case llm.RoleAssistant:
			role = responses.EasyInputMessageRoleAssistant
		default:
			return responses.ResponseNewParams{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt,
				fmt.Sprintf("unsupported message role %q", msg.Role))
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, role))
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := responses.ResponseNewParams{
		Model:           shared.ResponsesModel(c.modelName),
		Input:           responses.ResponseNewParamsInputUnion{OfInputItemList: items},
		MaxOutputTokens: openai.Int(int64(maxTokens)),
		Temperature:     openai.Float(float64(in.Temperature)),
	}
	return params, nil
}

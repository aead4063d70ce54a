// Package metrics queries aggregated LLM usage per plan from Prometheus.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// PlanMetrics is the aggregated token usage for one plan.
type PlanMetrics struct {
	PlanID           string `json:"plan_id"`
	Requests         int64  `json:"requests"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
}

// QueryService queries metrics from a Prometheus server scraping this
// process.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{Address: prometheusURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetPlanMetrics aggregates token and request counts for one plan across
// every phase.
func (q *QueryService) GetPlanMetrics(ctx context.Context, planID string) (*PlanMetrics, error) {
	metrics := &PlanMetrics{PlanID: planID}

	promptQuery := fmt.Sprintf(`sum(llm_tokens_total{plan_id=%q, type="prompt"})`, planID)
	prompt, err := q.scalar(ctx, promptQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	metrics.PromptTokens = prompt

	completionQuery := fmt.Sprintf(`sum(llm_tokens_total{plan_id=%q, type="completion"})`, planID)
	completion, err := q.scalar(ctx, completionQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	metrics.CompletionTokens = completion
	metrics.TotalTokens = prompt + completion

	requestsQuery := fmt.Sprintf(`sum(llm_requests_total{plan_id=%q})`, planID)
	requests, err := q.scalar(ctx, requestsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query request count: %w", err)
	}
	metrics.Requests = requests

	return metrics, nil
}

// scalar runs an instant query and returns the first sample value.
func (q *QueryService) scalar(ctx context.Context, query string) (int64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return int64(vector[0].Value), nil
	}
	return 0, nil
}

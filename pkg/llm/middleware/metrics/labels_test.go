package metrics

import (
	"context"
	"testing"
	"time"

	"assistant/pkg/llm"
)

// captureRecorder keeps the label values of the last observed request.
type captureRecorder struct {
	planID string
	phase  string
	calls  int
}

func (c *captureRecorder) ObserveRequest(
	_, planID, phase string,
	_, _ int,
	_ bool,
	_ string,
	_ time.Duration,
) {
	c.planID = planID
	c.phase = phase
	c.calls++
}

func fakeBase() llm.Client {
	return llm.WrapClient(
		func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
			return llm.CompletionResponse{Content: "ok"}, nil
		},
		func(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
			ch := make(chan llm.StreamChunk)
			close(ch)
			return ch, nil
		},
		func() string { return "test-model" },
	)
}

func TestSessionLabelsReachRecordedMetrics(t *testing.T) {
	recorder := &captureRecorder{}
	labels := NewSessionLabels()
	client := Middleware(recorder, nil, labels)(fakeBase())

	req := llm.CompletionRequest{Messages: []llm.CompletionMessage{llm.NewUserMessage("hi")}}

	labels.SetPlan("plan-123")
	labels.SetPhase("planning")
	if _, err := client.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if recorder.planID != "plan-123" || recorder.phase != "planning" {
		t.Fatalf("recorded labels %q/%q, want plan-123/planning", recorder.planID, recorder.phase)
	}

	// Label updates apply to subsequent requests without rebuilding the
	// client.
	labels.SetPhase("executing")
	if _, err := client.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if recorder.phase != "executing" {
		t.Fatalf("recorded phase %q, want executing", recorder.phase)
	}
	if recorder.calls != 2 {
		t.Fatalf("recorder saw %d calls, want 2", recorder.calls)
	}
}

func TestSessionLabelsZeroValue(t *testing.T) {
	labels := NewSessionLabels()
	if labels.GetPlanID() != "" || labels.GetPhase() != "" {
		t.Fatalf("fresh labels should be empty, got %q/%q", labels.GetPlanID(), labels.GetPhase())
	}
}

package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant/pkg/config"
	"assistant/pkg/llm"
	"assistant/pkg/rules"
	"assistant/pkg/task"
	"assistant/pkg/workspace"
)

func testConfig() config.Config {
	return config.Config{
		SourceRoot: "src",
		LLM: &config.LLMConfig{
			Model:        config.ModelClaudeSonnet,
			MaxTokens:    1024,
			PromptBudget: 8000,
			Temperature:  0.2,
			Timeout:      10 * time.Second,
		},
		Executor: &config.ExecutorConfig{MaxAttempts: 3},
		Recovery: &config.RecoveryConfig{
			MissingTarget:      config.RecoverSwitchToWrite,
			MissingProjectFile: config.RecoverInsertInitStep,
			PermissionDenied:   config.RecoverFatal,
			IsDirectory:        config.RecoverFatal,
		},
		Persistence: &config.PersistenceConfig{Enabled: false},
	}
}

func newTestSession(t *testing.T, client llm.Client) (*Session, string) {
	t.Helper()
	root := t.TempDir()
	ws, err := workspace.New(root)
	require.NoError(t, err)
	return New(testConfig(), client, rules.DefaultRegistry(), ws, nil), root
}

func TestRunEndToEnd(t *testing.T) {
	client := llm.NewMockClientWithContent(
		// Plan draft.
		`[
			{"id": "s1", "kind": "write_file", "path": "src/util/sum.ts",
			 "prompt": "implement a sum helper"},
			{"id": "s2", "kind": "write_file", "path": "src/util/index.ts",
			 "prompt": "re-export sum", "depends_on": ["s1"]}
		]`,
		// Artifacts for the two write steps.
		"export const sum = (a: number, b: number): number => a + b;\n",
		"export { sum } from './sum';\n",
	)
	sess, root := newTestSession(t, client)

	result := sess.Run(context.Background(), "Implement a sum helper module")
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Completed)
	assert.Nil(t, result.Failed)
	require.NotNil(t, result.Plan)
	assert.Len(t, result.Plan.Steps, 2)

	for _, rel := range []string{"src/util/sum.ts", "src/util/index.ts"} {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		assert.NoError(t, err, "%s should exist", rel)
	}
}

func TestExecutePlanHaltsAtFirstFailure(t *testing.T) {
	client := llm.NewMockClientWithContent(
		`[
			{"id": "s1", "kind": "write_file", "path": "src/a.ts", "prompt": "a"},
			{"id": "s2", "kind": "write_file", "path": "src/b.ts", "prompt": "b", "depends_on": ["s1"]}
		]`,
		// s1 keeps violating through the whole budget (one generation plus
		// three corrections).
		"<<<<<<< HEAD\n",
		"<<<<<<< HEAD\n",
		"<<<<<<< HEAD\n",
		"<<<<<<< HEAD\n",
	)
	sess, _ := newTestSession(t, client)

	result := sess.Run(context.Background(), "Implement two helpers")
	require.Error(t, result.Err)
	assert.Equal(t, 0, result.Completed)
	require.NotNil(t, result.Failed)
	assert.Equal(t, "s1", result.Failed.ID)
	assert.True(t, task.IsCode(result.Err, task.ErrValidation), "got %v", result.Err)
	assert.Len(t, result.Failed.Attempts, 3)
	assert.Equal(t, 5, client.CallCount(), "s2 never ran")
}

func TestExecutePlanRefusesDependentOfFailedStep(t *testing.T) {
	sess, _ := newTestSession(t, llm.NewMockClientWithContent("unused"))

	// Hand-built plan whose dependency was never completed; the session
	// must refuse the dependent rather than trust plan order blindly.
	plan := task.NewPlan("request", task.TaskGeneral)
	plan.Steps = []*task.Step{
		{ID: "s2", Kind: task.StepWrite, Path: "src/b.ts", Prompt: "b",
			DependsOn: []string{"s1"}, Status: task.StatusPending},
	}

	result := sess.ExecutePlan(context.Background(), plan)
	require.Error(t, result.Err)
	assert.True(t, task.IsCode(result.Err, task.ErrPlanInvalid))
	assert.Equal(t, "s2", result.Failed.ID)
}

func TestExecutePlanHonorsCancellation(t *testing.T) {
	client := llm.NewMockClientWithContent(
		`[{"id": "s1", "kind": "write_file", "path": "src/a.ts", "prompt": "a"}]`,
	)
	sess, _ := newTestSession(t, client)

	plan, err := sess.GeneratePlan(context.Background(), "Implement a helper")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := sess.ExecutePlan(ctx, plan)
	require.Error(t, result.Err)
	assert.Equal(t, 0, result.Completed)
	assert.Equal(t, 1, client.CallCount(), "no step ran after cancellation")
}

func TestGeneratePlanSurfacesPlannerErrors(t *testing.T) {
	sess, _ := newTestSession(t, llm.NewMockClientWithContent("no json here"))

	_, err := sess.GeneratePlan(context.Background(), "Implement a helper")
	require.Error(t, err)
	assert.True(t, task.IsCode(err, task.ErrPlanInvalid))
}

func TestConversationFeedsLaterGenerations(t *testing.T) {
	client := llm.NewMockClientWithContent(
		`[
			{"id": "s1", "kind": "write_file", "path": "src/a.ts", "prompt": "a"},
			{"id": "s2", "kind": "write_file", "path": "src/b.ts", "prompt": "b", "depends_on": ["s1"]}
		]`,
		"export const a = 1;\n",
		"export const b = 2;\n",
	)
	sess, _ := newTestSession(t, client)

	result := sess.Run(context.Background(), "Implement two helpers")
	require.NoError(t, result.Err)
	require.Equal(t, 3, client.CallCount())

	var s2Prompt string
	for _, msg := range client.Requests[2].Messages {
		s2Prompt += msg.Content + "\n"
	}
	assert.Contains(t, s2Prompt, "Implement two helpers", "the original request reaches later generations")
	assert.Contains(t, s2Prompt, "planned 2 step(s)")
	assert.Contains(t, s2Prompt, "step s1", "completed steps are visible to later generations")
}

// labelRecorder captures the plan/phase label updates in order.
type labelRecorder struct {
	calls []string
}

func (l *labelRecorder) SetPlan(planID string) { l.calls = append(l.calls, "plan="+planID) }
func (l *labelRecorder) SetPhase(phase string) { l.calls = append(l.calls, "phase="+phase) }

func TestSessionUpdatesMetricLabels(t *testing.T) {
	client := llm.NewMockClientWithContent(
		`[{"id": "s1", "kind": "write_file", "path": "src/a.ts", "prompt": "a"}]`,
		"export const a = 1;\n",
	)
	sess, _ := newTestSession(t, client)
	labels := &labelRecorder{}
	sess.SetLabels(labels)

	result := sess.Run(context.Background(), "Implement a helper")
	require.NoError(t, result.Err)

	require.Len(t, labels.calls, 3)
	assert.Equal(t, "phase=planning", labels.calls[0])
	assert.Equal(t, "plan="+result.Plan.ID, labels.calls[1])
	assert.Equal(t, "phase=executing", labels.calls[2])
}

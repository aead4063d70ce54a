package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"assistant/pkg/llm"
	"assistant/pkg/llm/llmerrors"
	"assistant/pkg/task"
)

const planSystemPrompt = `You are a planning assistant for code changes. Respond with a JSON array
of steps and nothing else. Each step is an object:
  {"id": "s1", "kind": "read_file"|"write_file"|"run_command",
   "path": "<file path>", "command": "<shell command>",
   "prompt": "<generation instructions for write steps>",
   "depends_on": ["<step id>", ...]}
Use real project paths, never placeholders. Write steps must carry a prompt
detailed enough to generate the full file.`

var jsonArray = regexp.MustCompile(`(?s)\[.*\]`)

// stepSpec is the wire format of one drafted step.
type stepSpec struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Path      string   `json:"path,omitempty"`
	Command   string   `json:"command,omitempty"`
	Prompt    string   `json:"prompt,omitempty"`
	DependsOn []string `json:"depends_on,omitempty"`
}

// draftSteps asks the LLM for a step sequence and parses it into typed
// steps. Any structural defect is fatal PLAN_INVALID.
func (p *Planner) draftSteps(ctx context.Context, request string, taskType task.TaskType, ruleIDs []string) ([]*task.Step, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Task type: %s\nRequest: %s\n", taskType, request)
	if brief := p.ruleBrief(ruleIDs); brief != "" {
		fmt.Fprintf(&b, "\nGenerated code must follow these rules:\n%s", brief)
	}

	messages := []llm.CompletionMessage{llm.NewSystemMessage(planSystemPrompt)}
	if p.conversation != nil {
		messages = append(messages, p.conversation.Messages()...)
	}
	messages = append(messages, llm.NewUserMessage(b.String()))

	resp, err := p.client.Complete(ctx, llm.CompletionRequest{Messages: messages})
	if err != nil {
		if llmerrors.Is(err, llmerrors.ErrorTypeTimeout) {
			return nil, task.NewDomainError(task.ErrTimeout, "", err)
		}
		return nil, fmt.Errorf("plan draft failed: %w", err)
	}

	return parseSteps(resp.Content)
}

// ruleBrief renders the advisory profiles for the generation prompt.
func (p *Planner) ruleBrief(ruleIDs []string) string {
	var b strings.Builder
	for _, id := range ruleIDs {
		profile, ok := p.registry.Profile(id)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", profile.ID, profile.Description)
	}
	return b.String()
}

// parseSteps converts the model's response into typed steps.
func parseSteps(content string) ([]*task.Step, error) {
	payload := jsonArray.FindString(content)
	if payload == "" {
		return nil, task.NewDomainError(task.ErrPlanInvalid, "",
			fmt.Errorf("response contains no JSON step array"))
	}

	var specs []stepSpec
	if err := json.Unmarshal([]byte(payload), &specs); err != nil {
		return nil, task.NewDomainError(task.ErrPlanInvalid, "",
			fmt.Errorf("failed to parse step array: %w", err))
	}
	if len(specs) == 0 {
		return nil, task.NewDomainError(task.ErrPlanInvalid, "", errEmptyPlan)
	}

	steps := make([]*task.Step, 0, len(specs))
	for i := range specs {
		step, err := specToStep(&specs[i], i)
		if err != nil {
			return nil, task.NewDomainError(task.ErrPlanInvalid, specs[i].ID, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func specToStep(spec *stepSpec, index int) (*task.Step, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("step %d has no id", index)
	}

	kind := task.StepKind(spec.Kind)
	switch kind {
	case task.StepRead, task.StepWrite:
		if strings.TrimSpace(spec.Path) == "" {
			return nil, fmt.Errorf("step %s (%s) has no path", spec.ID, kind)
		}
	case task.StepCommand:
		if strings.TrimSpace(spec.Command) == "" {
			return nil, fmt.Errorf("step %s (%s) has no command", spec.ID, kind)
		}
	default:
		return nil, fmt.Errorf("step %s has unknown kind %q", spec.ID, spec.Kind)
	}
	if kind == task.StepWrite && strings.TrimSpace(spec.Prompt) == "" {
		return nil, fmt.Errorf("write step %s has no generation prompt", spec.ID)
	}

	return &task.Step{
		ID:        spec.ID,
		Kind:      kind,
		Path:      spec.Path,
		Command:   spec.Command,
		Prompt:    spec.Prompt,
		DependsOn: spec.DependsOn,
		Status:    task.StatusPending,
	}, nil
}

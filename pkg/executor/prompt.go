package executor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"assistant/pkg/llm"
	"assistant/pkg/llm/llmerrors"
	"assistant/pkg/task"
)

const generateSystemPrompt = `You are a code generator. Output only the complete file content.
Do not explain, do not elide sections, do not wrap the code in prose.`

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z0-9+#-]*\n(.*?)```")

// history returns the session conversation so far, or nil when no source is
// attached.
func (e *Executor) history() []llm.CompletionMessage {
	if e.conversation == nil {
		return nil
	}
	return e.conversation.Messages()
}

// generate asks the LLM for the step's initial artifact. The session
// conversation precedes the step prompt so generations see the original
// request and what earlier steps produced.
func (e *Executor) generate(ctx context.Context, step *task.Step) (string, error) {
	messages := append([]llm.CompletionMessage{llm.NewSystemMessage(generateSystemPrompt)}, e.history()...)
	messages = append(messages, llm.NewUserMessage(fmt.Sprintf("File: %s\n\n%s", step.Path, step.Prompt)))
	req := llm.CompletionRequest{Messages: messages}
	resp, err := e.client.Complete(ctx, req)
	if err != nil {
		return "", llmFailure(step.ID, err)
	}
	return extractCode(resp.Content), nil
}

// requestCorrection asks the LLM to fix the listed violations, supplying the
// current artifact and each violation with its line context.
func (e *Executor) requestCorrection(ctx context.Context, step *task.Step, artifact string, violations []task.Violation) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "The following file violates %d rule(s).\n\nFile: %s\n```\n%s\n```\n\nViolations:\n",
		len(violations), step.Path, artifact)
	for i := range violations {
		v := &violations[i]
		fmt.Fprintf(&b, "- [%s] %s", v.RuleID, v.Message)
		if v.Line > 0 {
			fmt.Fprintf(&b, "\n  line %d: %s", v.Line, lineContext(artifact, v.Line))
		}
		if v.SuggestedFix != "" {
			fmt.Fprintf(&b, "\n  fix: %s", v.SuggestedFix)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nOutput the complete corrected file content. Fix every violation without introducing new ones.")

	messages := append([]llm.CompletionMessage{llm.NewSystemMessage(generateSystemPrompt)}, e.history()...)
	messages = append(messages, llm.NewUserMessage(b.String()))
	req := llm.CompletionRequest{Messages: messages}
	resp, err := e.client.Complete(ctx, req)
	if err != nil {
		return "", llmFailure(step.ID, err)
	}
	return extractCode(resp.Content), nil
}

// llmFailure maps an LLM transport failure to the step error taxonomy. A
// timeout fails the step with no further attempts.
func llmFailure(stepID string, err error) error {
	if llmerrors.Is(err, llmerrors.ErrorTypeTimeout) {
		return task.NewDomainError(task.ErrTimeout, stepID, err)
	}
	return task.NewDomainError(task.ErrIO, stepID, err)
}

// extractCode strips a surrounding fenced code block if the model added one.
func extractCode(content string) string {
	trimmed := strings.TrimSpace(content)
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

// lineContext returns the artifact's 1-based line, trimmed for prompt use.
func lineContext(artifact string, line int) string {
	lines := strings.Split(artifact, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}

// Package contextmgr holds the conversation state the LLM sees during one
// plan-execution session. State is scoped to the session and reset at its
// boundaries, never shared across plans.
package contextmgr

import (
	"fmt"
	"strings"

	"assistant/pkg/llm"
	"assistant/pkg/utils"
)

// ContextManager accumulates session messages under a token budget.
type ContextManager struct {
	messages     []llm.CompletionMessage
	promptBudget int
}

// New creates a context manager. budget <= 0 disables compaction.
func New(promptBudget int) *ContextManager {
	return &ContextManager{promptBudget: promptBudget}
}

// AddMessage appends a role/content pair to the session context.
func (cm *ContextManager) AddMessage(role llm.CompletionRole, content string) {
	cm.messages = append(cm.messages, llm.CompletionMessage{Role: role, Content: content})
}

// Messages returns a copy of the session messages.
func (cm *ContextManager) Messages() []llm.CompletionMessage {
	out := make([]llm.CompletionMessage, len(cm.messages))
	copy(out, cm.messages)
	return out
}

// CountTokens returns the token size of the current context.
func (cm *ContextManager) CountTokens() int {
	total := 0
	for i := range cm.messages {
		total += utils.CountTokensSimple(cm.messages[i].Content)
	}
	return total
}

// CompactIfNeeded drops the oldest non-system messages until the context
// fits the prompt budget.
func (cm *ContextManager) CompactIfNeeded() {
	if cm.promptBudget <= 0 {
		return
	}
	for cm.CountTokens() > cm.promptBudget && len(cm.messages) > 1 {
		// The leading system message survives compaction.
		if cm.messages[0].Role == llm.RoleSystem && len(cm.messages) > 2 {
			cm.messages = append(cm.messages[:1], cm.messages[2:]...)
		} else {
			cm.messages = cm.messages[1:]
		}
	}
}

// Clear resets the session context. Called at session start and end.
func (cm *ContextManager) Clear() {
	cm.messages = nil
}

// Summary renders a one-line description of the context for diagnostics.
func (cm *ContextManager) Summary() string {
	if len(cm.messages) == 0 {
		return "empty context"
	}
	roles := make([]string, 0, len(cm.messages))
	for i := range cm.messages {
		roles = append(roles, string(cm.messages[i].Role))
	}
	return fmt.Sprintf("%d message(s), ~%d tokens [%s]", len(cm.messages), cm.CountTokens(), strings.Join(roles, " "))
}

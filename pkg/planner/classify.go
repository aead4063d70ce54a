package planner

import (
	"strings"

	"assistant/pkg/task"
)

// classifierKeywords maps request vocabulary to task types. First matching
// entry wins; order encodes precedence.
var classifierKeywords = []struct {
	taskType task.TaskType
	words    []string
}{
	{task.TaskTest, []string{"test", "spec", "coverage", "unit test"}},
	{task.TaskBugfix, []string{"fix", "bug", "broken", "crash", "error in", "doesn't work", "does not work"}},
	{task.TaskRefactor, []string{"refactor", "rename", "extract", "clean up", "restructure", "simplify"}},
	{task.TaskComponent, []string{"component", "button", "modal", "widget", "form", "page", "view"}},
	{task.TaskDocs, []string{"document", "readme", "docs", "comment", "changelog"}},
	{task.TaskFeature, []string{"add", "create", "implement", "build", "support"}},
}

// Classify maps a request into the closed task-type set. Classification only
// selects which rule profiles brief the generation prompt; it never changes
// execution semantics.
func Classify(request string) task.TaskType {
	lower := strings.ToLower(request)
	for _, entry := range classifierKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				return entry.taskType
			}
		}
	}
	return task.TaskGeneral
}

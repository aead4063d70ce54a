// Package preflight guards requests and steps before any LLM call. It
// rejects malformed paths, reads of files that cannot exist yet, and
// hallucinated stand-in tokens, so doomed generations never spend a
// completion.
package preflight

import (
	"fmt"
	"regexp"
	"strings"

	"assistant/pkg/config"
	"assistant/pkg/logx"
	"assistant/pkg/rules"
	"assistant/pkg/task"
	"assistant/pkg/utils"
	"assistant/pkg/workspace"
)

// hallucinationToken matches the word "manual" used as a stand-in where a
// real path or command was expected. Observed as a recurring generation
// artifact.
var hallucinationToken = regexp.MustCompile(`(?i)\bmanual\b`)

// Result is the outcome of a pre-flight check.
type Result struct {
	// Approved is true when zero blocking violations were found.
	Approved bool
	// Violations lists the blocking findings. Advisory findings never
	// appear here; they go into the report text only.
	Violations []task.Violation
	// ApplicableRules names the rule profiles advisory for this task
	// type, used to brief the generation prompt.
	ApplicableRules []string
	// Report is a human-readable summary.
	Report string
}

// Checker runs pre-flight guards against one workspace and rule registry.
type Checker struct {
	registry   *rules.Registry
	store      workspace.FileStore
	sourceRoot string
	logger     *logx.Logger
}

// NewChecker creates a checker. sourceRoot is the project's conventional
// source directory, used when resolving sanitized read targets; empty means
// the default.
func NewChecker(registry *rules.Registry, store workspace.FileStore, sourceRoot string) *Checker {
	if sourceRoot == "" {
		sourceRoot = config.DefaultSourceRoot
	}
	return &Checker{
		registry:   registry,
		store:      store,
		sourceRoot: sourceRoot,
		logger:     logx.NewLogger("preflight"),
	}
}

// CheckRequest guards a natural-language request before plan generation.
func (c *Checker) CheckRequest(request string, taskType task.TaskType) *Result {
	result := &Result{Approved: true}

	if strings.TrimSpace(request) == "" {
		result.addViolation(task.ErrContractViolation, "request is empty", "provide a concrete coding request")
	}

	for _, p := range c.registry.ProfilesForTask(taskType) {
		result.ApplicableRules = append(result.ApplicableRules, p.ID)
	}

	result.finish(fmt.Sprintf("request (%s)", taskType))
	c.logger.Debug("request check: approved=%v rules=%d", result.Approved, len(result.ApplicableRules))
	return result
}

// CheckStep guards one step before execution. writtenPaths holds the paths
// produced by steps that already completed in this plan; a read of a path
// neither written nor present in the workspace is a greenfield read.
func (c *Checker) CheckStep(step *task.Step, writtenPaths map[string]bool) *Result {
	result := &Result{Approved: true}

	switch step.Kind {
	case task.StepCommand:
		c.checkCommand(step.Command, result)
	default:
		c.checkPath(step, writtenPaths, result)
	}

	result.finish(fmt.Sprintf("step %s (%s)", step.ID, step.Kind))
	return result
}

// checkPath runs the path guards against the step's raw path. Checks run
// before sanitization on purpose: a placeholder the sanitizer would rewrite
// still proves the generation never knew the real path.
func (c *Checker) checkPath(step *task.Step, writtenPaths map[string]bool, result *Result) {
	path := step.Path
	if strings.TrimSpace(path) == "" {
		result.addViolation(task.ErrPathMalformed, "step has no target path", "supply the file path the step operates on")
		return
	}

	if utils.HasConsecutiveSpaces(path) {
		result.addViolation(task.ErrPathMalformed,
			fmt.Sprintf("path %q contains consecutive spaces", path),
			"remove the stray whitespace from the path")
	}
	if utils.HasEllipsis(path) {
		result.addViolation(task.ErrPathMalformed,
			fmt.Sprintf("path %q contains an ellipsis marker", path),
			"replace the ellipsis with the actual path segments")
	}
	if utils.HasPlaceholderSegment(path) {
		result.addViolation(task.ErrPathPlaceholder,
			fmt.Sprintf("path %q contains an unresolved placeholder segment", path),
			"replace the placeholder directory with the project's real source layout")
	}
	if step.Kind.IsFileProducing() && !utils.HasExtension(path) {
		result.addViolation(task.ErrPathMalformed,
			fmt.Sprintf("path %q has no file extension for a file-producing step", path),
			"add the file extension matching the artifact's language")
	}
	if hallucinationToken.MatchString(path) {
		result.addViolation(task.ErrContractViolation,
			fmt.Sprintf("path %q contains a hallucinated stand-in token", path),
			"supply the real path instead of a stand-in value")
	}

	if step.Kind == task.StepRead {
		clean := utils.SanitizePathWithRoot(path, c.sourceRoot)
		if !writtenPaths[clean] && !c.store.Exists(clean) {
			result.addViolation(task.ErrGreenfieldRead,
				fmt.Sprintf("read of %q, which no earlier step writes and which does not exist", path),
				"write the file first or drop the read step")
		}
	}
}

func (c *Checker) checkCommand(command string, result *Result) {
	if strings.TrimSpace(command) == "" {
		result.addViolation(task.ErrPathMalformed, "step has no command", "supply the command to run")
		return
	}
	if hallucinationToken.MatchString(command) {
		result.addViolation(task.ErrContractViolation,
			fmt.Sprintf("command %q contains a hallucinated stand-in token", command),
			"supply the real command instead of a stand-in value")
	}
}

func (r *Result) addViolation(code task.ErrorCode, message, fix string) {
	r.Approved = false
	r.Violations = append(r.Violations, task.Violation{
		RuleID:       string(code),
		Severity:     task.SeverityError,
		Message:      message,
		SuggestedFix: fix,
	})
}

// finish renders the human-readable report.
func (r *Result) finish(subject string) {
	var b strings.Builder
	if r.Approved {
		fmt.Fprintf(&b, "pre-flight passed for %s", subject)
	} else {
		fmt.Fprintf(&b, "pre-flight rejected %s:\n", subject)
		for i := range r.Violations {
			v := &r.Violations[i]
			fmt.Fprintf(&b, "  [%s] %s\n", v.RuleID, v.Message)
		}
	}
	if len(r.ApplicableRules) > 0 {
		fmt.Fprintf(&b, "\napplicable rules: %s", strings.Join(r.ApplicableRules, ", "))
	}
	r.Report = b.String()
}

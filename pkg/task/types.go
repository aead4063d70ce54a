// Package task defines the shared data model for plans, steps, and
// validation results that flows between the planner, executor, and
// validation layers.
package task

import (
	"time"

	"github.com/google/uuid"
)

// StepKind represents the kind of action a step performs.
type StepKind string

// Step kinds - the closed set of actions a plan may contain.
const (
	StepRead    StepKind = "read_file"
	StepWrite   StepKind = "write_file"
	StepCommand StepKind = "run_command"
)

// IsFileProducing reports whether the step kind creates or modifies a file.
func (k StepKind) IsFileProducing() bool {
	return k == StepWrite
}

// StepStatus represents the execution status of a step.
type StepStatus string

// Step statuses - single source of truth for the executor state machine.
const (
	StatusPending    StepStatus = "PENDING"
	StatusRunning    StepStatus = "RUNNING"
	StatusValidating StepStatus = "VALIDATING"
	StatusCorrecting StepStatus = "CORRECTING"
	StatusDone       StepStatus = "DONE"
	StatusFailed     StepStatus = "FAILED"
)

// TaskType classifies the user request. Classification only selects which
// rule profiles are advisory in the generation brief; it never changes
// execution semantics.
type TaskType string

// Task type constants - closed set.
const (
	TaskComponent TaskType = "component"
	TaskFeature   TaskType = "feature"
	TaskBugfix    TaskType = "bugfix"
	TaskRefactor  TaskType = "refactor"
	TaskTest      TaskType = "test"
	TaskDocs      TaskType = "docs"
	TaskGeneral   TaskType = "general"
)

// ValidTaskTypes returns every recognized task type.
func ValidTaskTypes() []TaskType {
	return []TaskType{TaskComponent, TaskFeature, TaskBugfix, TaskRefactor, TaskTest, TaskDocs, TaskGeneral}
}

// Severity indicates whether a violation blocks approval or is advisory.
type Severity string

// Severity levels.
const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Violation is a single finding produced by the semantic validator or a
// pre-flight guard.
type Violation struct {
	RuleID       string   `json:"rule_id"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
	Line         int      `json:"line,omitempty"`
}

// ValidationResult is the ordered list of violations for one artifact.
type ValidationResult struct {
	Violations []Violation `json:"violations"`
}

// Errors returns only the error-severity violations.
func (r *ValidationResult) Errors() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			out = append(out, v)
		}
	}
	return out
}

// Warnings returns only the warn-severity violations.
func (r *ValidationResult) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// HasErrors reports whether any error-severity violation is present.
func (r *ValidationResult) HasErrors() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ExecutionAttempt records one correction-loop attempt for a step. Attempts
// are retained for the lifetime of the step to support oscillation
// detection and post-mortem diagnosis.
type ExecutionAttempt struct {
	Index      int         `json:"index"`
	Artifact   string      `json:"artifact"`
	Violations []Violation `json:"violations"`
}

// RuleIDs returns the set of rule IDs violated in this attempt.
func (a *ExecutionAttempt) RuleIDs() map[string]bool {
	ids := make(map[string]bool, len(a.Violations))
	for _, v := range a.Violations {
		if v.Severity == SeverityError {
			ids[v.RuleID] = true
		}
	}
	return ids
}

// Step is one file/command action in a plan. Created by the planner,
// mutated by the executor, destroyed with the plan.
type Step struct {
	ID        string     `json:"id"`
	Kind      StepKind   `json:"kind"`
	Path      string     `json:"path,omitempty"`
	Command   string     `json:"command,omitempty"`
	Prompt    string     `json:"prompt,omitempty"`
	DependsOn []string   `json:"depends_on,omitempty"`
	Status    StepStatus `json:"status"`

	// Execution bookkeeping, owned by the executor.
	Attempts  []ExecutionAttempt `json:"attempts,omitempty"`
	LastError string             `json:"last_error,omitempty"`
	Artifact  string             `json:"artifact,omitempty"`
}

// Target returns the path or command the step acts on.
func (s *Step) Target() string {
	if s.Kind == StepCommand {
		return s.Command
	}
	return s.Path
}

// AttemptCount returns the number of correction attempts recorded so far.
func (s *Step) AttemptCount() int {
	return len(s.Attempts)
}

// Plan is the ordered sequence of steps produced for one request.
// Owned by one execution session and discarded at session end.
type Plan struct {
	ID        string    `json:"id"`
	Request   string    `json:"request"`
	TaskType  TaskType  `json:"task_type"`
	RuleIDs   []string  `json:"rule_ids,omitempty"`
	Steps     []*Step   `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPlan creates an empty plan for the given request.
func NewPlan(request string, taskType TaskType) *Plan {
	return &Plan{
		ID:        uuid.New().String(),
		Request:   request,
		TaskType:  taskType,
		CreatedAt: time.Now().UTC(),
	}
}

// StepByID returns the step with the given ID, if present.
func (p *Plan) StepByID(id string) (*Step, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// StepResult is the outcome of executing one step, exposed to callers.
type StepResult struct {
	Status     StepStatus         `json:"status"`
	Violations []Violation        `json:"violations,omitempty"`
	Attempts   []ExecutionAttempt `json:"attempts,omitempty"`
	Artifact   string             `json:"artifact,omitempty"`
}

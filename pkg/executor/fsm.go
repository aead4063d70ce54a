package executor

import (
	"fmt"

	"assistant/pkg/task"
)

// StepTransitions defines the legal step status transitions. The correction
// loop cycles VALIDATING and CORRECTING until violations clear or the
// attempt budget runs out.
var StepTransitions = map[task.StepStatus][]task.StepStatus{
	task.StatusPending:    {task.StatusRunning},
	task.StatusRunning:    {task.StatusValidating, task.StatusDone, task.StatusFailed},
	task.StatusValidating: {task.StatusCorrecting, task.StatusDone, task.StatusFailed},
	task.StatusCorrecting: {task.StatusValidating, task.StatusFailed},
	task.StatusDone:       {},
	task.StatusFailed:     {},
}

// IsValidTransition reports whether from -> to is a legal step transition.
func IsValidTransition(from, to task.StepStatus) bool {
	for _, next := range StepTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves a step to the next status, rejecting illegal moves.
func transition(step *task.Step, to task.StepStatus) error {
	if !IsValidTransition(step.Status, to) {
		return fmt.Errorf("invalid step transition %s -> %s (step %s)", step.Status, to, step.ID)
	}
	step.Status = to
	return nil
}

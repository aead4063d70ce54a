// Package recovery maps step execution failures to alternative actions.
// Which I/O error classes are recoverable is a configured policy table, not
// hardcoded control flow.
package recovery

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"assistant/pkg/config"
	"assistant/pkg/logx"
	"assistant/pkg/task"
)

// ErrorClass is the classification of an I/O failure.
type ErrorClass string

// I/O error classes.
const (
	ClassMissingTarget      ErrorClass = "missing_target"
	ClassMissingProjectFile ErrorClass = "missing_project_file"
	ClassPermissionDenied   ErrorClass = "permission_denied"
	ClassIsDirectory        ErrorClass = "is_directory"
	ClassUnknown            ErrorClass = "unknown"
)

// projectFiles are files whose absence means the project itself is not
// initialized, rather than one artifact being missing.
var projectFiles = map[string]bool{
	"package.json":   true,
	"tsconfig.json":  true,
	"go.mod":         true,
	"pyproject.toml": true,
	"Cargo.toml":     true,
}

// Strategy is a recovery decision for a failed step.
type Strategy struct {
	Action config.RecoveryAction
	Class  ErrorClass
	// AlternativeStep replaces the failed step (switch_to_write) or is
	// inserted before it (insert_init_step).
	AlternativeStep *task.Step
	Reason          string
}

// Strategist applies the configured recovery policy.
type Strategist struct {
	policy config.RecoveryConfig
	logger *logx.Logger
}

func NewStrategist(policy config.RecoveryConfig) *Strategist {
	return &Strategist{
		policy: policy,
		logger: logx.NewLogger("recovery"),
	}
}

// Classify determines the error class of an I/O failure from err and the
// step it interrupted.
func Classify(step *task.Step, err error) ErrorClass {
	switch {
	case isNotExist(err):
		if projectFiles[path.Base(step.Target())] {
			return ClassMissingProjectFile
		}
		return ClassMissingTarget
	case errors.Is(err, os.ErrPermission):
		return ClassPermissionDenied
	case errors.Is(err, syscall.EISDIR) || strings.Contains(err.Error(), "is a directory"):
		return ClassIsDirectory
	default:
		return ClassUnknown
	}
}

// AttemptStrategySwitch returns the recovery strategy for a failed step, or
// nil when the failure is non-recoverable and must surface to the caller.
func (s *Strategist) AttemptStrategySwitch(step *task.Step, err error) *Strategy {
	class := Classify(step, err)
	action := s.actionFor(class)

	s.logger.Debug("step %s: classified %s as %s, policy action %s", step.ID, err, class, action)

	switch action {
	case config.RecoverSwitchToWrite:
		if step.Kind != task.StepRead {
			return nil
		}
		return &Strategy{
			Action: action,
			Class:  class,
			AlternativeStep: &task.Step{
				ID:     step.ID,
				Kind:   task.StepWrite,
				Path:   step.Path,
				Prompt: step.Prompt,
				Status: task.StatusPending,
			},
			Reason: fmt.Sprintf("read target %s does not exist, switching the step to a write of the same path", step.Path),
		}
	case config.RecoverInsertInitStep:
		target := path.Base(step.Target())
		return &Strategy{
			Action: action,
			Class:  class,
			AlternativeStep: &task.Step{
				ID:     uuid.New().String(),
				Kind:   task.StepWrite,
				Path:   step.Target(),
				Prompt: fmt.Sprintf("Create a minimal valid %s for this project.", target),
				Status: task.StatusPending,
			},
			Reason: fmt.Sprintf("required project file %s is missing, inserting an initialization step", target),
		}
	default:
		return nil
	}
}

func (s *Strategist) actionFor(class ErrorClass) config.RecoveryAction {
	switch class {
	case ClassMissingTarget:
		return s.policy.MissingTarget
	case ClassMissingProjectFile:
		return s.policy.MissingProjectFile
	case ClassPermissionDenied:
		return s.policy.PermissionDenied
	case ClassIsDirectory:
		return s.policy.IsDirectory
	default:
		return config.RecoverFatal
	}
}

// FilterCriticalErrors partitions violations into blocking (error severity)
// and advisory (warn severity). Only the blocking partition can fail a step
// or a plan.
func FilterCriticalErrors(violations []task.Violation) (blocking, advisory []task.Violation) {
	for _, v := range violations {
		if v.Severity == task.SeverityError {
			blocking = append(blocking, v)
		} else {
			advisory = append(advisory, v)
		}
	}
	return blocking, advisory
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// Package executor runs plan steps through the bounded
// validate-correct-revalidate state machine.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"assistant/pkg/config"
	"assistant/pkg/llm"
	"assistant/pkg/logx"
	"assistant/pkg/preflight"
	"assistant/pkg/recovery"
	"assistant/pkg/rules"
	"assistant/pkg/task"
	"assistant/pkg/utils"
	"assistant/pkg/workspace"
)

// ProgressFunc receives human-readable progress updates: one per correction
// attempt during execution.
type ProgressFunc func(message string)

// ConversationSource supplies the session conversation so far, carried into
// every generation and correction prompt.
type ConversationSource interface {
	Messages() []llm.CompletionMessage
}

// Executor runs one plan's steps sequentially. It is not safe for
// concurrent use; exactly one plan executes at a time.
type Executor struct {
	client       llm.Client
	registry     *rules.Registry
	store        workspace.FileStore
	runner       workspace.CommandRunner
	checker      *preflight.Checker
	strategist   *recovery.Strategist
	sourceRoot   string
	maxAttempts  int
	progress     ProgressFunc
	conversation ConversationSource
	logger       *logx.Logger

	// written tracks paths produced by completed steps in this plan, for
	// greenfield-read protection.
	written map[string]bool
}

// New creates an executor. maxAttempts outside the configured bounds is
// clamped; an empty sourceRoot falls back to the default.
func New(
	client llm.Client,
	registry *rules.Registry,
	store workspace.FileStore,
	runner workspace.CommandRunner,
	strategist *recovery.Strategist,
	sourceRoot string,
	maxAttempts int,
	progress ProgressFunc,
) *Executor {
	if maxAttempts < config.MaxAttemptsFloor {
		maxAttempts = config.MaxAttemptsFloor
	}
	if maxAttempts > config.MaxAttemptsCeil {
		maxAttempts = config.MaxAttemptsCeil
	}
	if sourceRoot == "" {
		sourceRoot = config.DefaultSourceRoot
	}
	if progress == nil {
		progress = func(string) {}
	}
	return &Executor{
		client:      client,
		registry:    registry,
		store:       store,
		runner:      runner,
		checker:     preflight.NewChecker(registry, store, sourceRoot),
		strategist:  strategist,
		sourceRoot:  sourceRoot,
		maxAttempts: maxAttempts,
		progress:    progress,
		logger:      logx.NewLogger("executor"),
		written:     make(map[string]bool),
	}
}

// SetConversation attaches the session conversation; generation and
// correction prompts carry its messages.
func (e *Executor) SetConversation(src ConversationSource) {
	e.conversation = src
}

// sanitize normalizes an LLM-produced path against this project's source
// root.
func (e *Executor) sanitize(path string) string {
	return utils.SanitizePathWithRoot(path, e.sourceRoot)
}

// WrittenPaths returns the set of paths produced by completed steps.
func (e *Executor) WrittenPaths() map[string]bool {
	out := make(map[string]bool, len(e.written))
	for p := range e.written {
		out[p] = true
	}
	return out
}

// ExecuteStep runs one step end to end: pre-flight guard, action, validation,
// correction loop, recovery. The returned StepResult always carries the full
// attempt history; err is non-nil for every non-DONE outcome.
func (e *Executor) ExecuteStep(ctx context.Context, step *task.Step) (*task.StepResult, error) {
	pf := e.checker.CheckStep(step, e.written)
	if !pf.Approved {
		step.Status = task.StatusFailed
		step.LastError = pf.Report
		code := blockingCode(pf.Violations)
		e.logger.Warn("step %s rejected by pre-flight: %s", step.ID, pf.Report)
		return resultOf(step, pf.Violations), task.NewDomainError(code, step.ID, errors.New(pf.Report))
	}

	if err := transition(step, task.StatusRunning); err != nil {
		return nil, err
	}
	e.logger.Info("step %s: %s %s", step.ID, step.Kind, step.Target())

	artifact, err := e.performAction(ctx, step, false)
	if err != nil {
		return e.fail(step, nil, err)
	}
	step.Artifact = artifact

	// Command output and read content are context, not generated code;
	// only file-producing artifacts go through the correction loop.
	if !step.Kind.IsFileProducing() {
		if err := transition(step, task.StatusDone); err != nil {
			return nil, err
		}
		return resultOf(step, nil), nil
	}

	result, err := e.runCorrectionLoop(ctx, step, artifact)
	if err != nil {
		return result, err
	}

	e.written[e.sanitize(step.Path)] = true
	return result, nil
}

// performAction executes the step's raw action. recovered guards against a
// second strategy switch for the same step.
func (e *Executor) performAction(ctx context.Context, step *task.Step, recovered bool) (string, error) {
	var artifact string
	var err error

	switch step.Kind {
	case task.StepRead:
		artifact, err = e.readAction(step)
	case task.StepWrite:
		artifact, err = e.writeAction(ctx, step)
	case task.StepCommand:
		artifact, err = e.commandAction(ctx, step)
	default:
		return "", task.NewDomainError(task.ErrPlanInvalid, step.ID, fmt.Errorf("unknown step kind %q", step.Kind))
	}

	if err == nil {
		return artifact, nil
	}
	var de *task.DomainError
	if errors.As(err, &de) {
		// Already classified (timeout, contract); recovery only applies
		// to raw I/O failures.
		return "", err
	}
	if recovered {
		return "", task.NewDomainError(task.ErrIO, step.ID, err)
	}
	return e.recover(ctx, step, err)
}

// recover consults the strategist and applies its decision.
func (e *Executor) recover(ctx context.Context, step *task.Step, cause error) (string, error) {
	strategy := e.strategist.AttemptStrategySwitch(step, cause)
	if strategy == nil {
		return "", task.NewDomainError(task.ErrIO, step.ID, cause)
	}

	e.logger.Info("step %s: %s", step.ID, strategy.Reason)
	e.progress(strategy.Reason)

	switch strategy.Action {
	case config.RecoverSwitchToWrite:
		step.Kind = task.StepWrite
		return e.performAction(ctx, step, true)
	case config.RecoverInsertInitStep:
		init := strategy.AlternativeStep
		if _, err := e.ExecuteStep(ctx, init); err != nil {
			return "", task.NewDomainError(task.ErrIO, step.ID,
				fmt.Errorf("initialization step failed: %w", err))
		}
		return e.performAction(ctx, step, true)
	default:
		return "", task.NewDomainError(task.ErrIO, step.ID, cause)
	}
}

func (e *Executor) readAction(step *task.Step) (string, error) {
	data, err := e.store.ReadFile(e.sanitize(step.Path))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeAction generates the artifact and persists it. Corrected artifacts
// are re-persisted by the correction loop at attempt boundaries.
func (e *Executor) writeAction(ctx context.Context, step *task.Step) (string, error) {
	artifact, err := e.generate(ctx, step)
	if err != nil {
		return "", err
	}
	if err := e.store.WriteFile(e.sanitize(step.Path), []byte(artifact)); err != nil {
		return "", err
	}
	return artifact, nil
}

func (e *Executor) commandAction(ctx context.Context, step *task.Step) (string, error) {
	result, err := e.runner.Run(ctx, step.Command)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", task.NewDomainError(task.ErrIO, step.ID,
			fmt.Errorf("command exited %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr)))
	}
	return result.Stdout, nil
}

// fail marks the step failed and wraps the cause with the attempt history.
func (e *Executor) fail(step *task.Step, violations []task.Violation, cause error) (*task.StepResult, error) {
	step.Status = task.StatusFailed
	step.LastError = cause.Error()

	var de *task.DomainError
	if errors.As(cause, &de) {
		de.Attempts = step.Attempts
		return resultOf(step, violations), de
	}
	return resultOf(step, violations), &task.DomainError{
		Code:     task.ErrIO,
		StepID:   step.ID,
		Attempts: step.Attempts,
		Err:      cause,
	}
}

func resultOf(step *task.Step, violations []task.Violation) *task.StepResult {
	return &task.StepResult{
		Status:     step.Status,
		Violations: violations,
		Attempts:   step.Attempts,
		Artifact:   step.Artifact,
	}
}

// blockingCode picks the error code for a pre-flight rejection. Contract
// violations dominate: they are never retried.
func blockingCode(violations []task.Violation) task.ErrorCode {
	code := task.ErrPathMalformed
	for _, v := range violations {
		switch task.ErrorCode(v.RuleID) {
		case task.ErrContractViolation:
			return task.ErrContractViolation
		case task.ErrGreenfieldRead, task.ErrPathPlaceholder, task.ErrPathMalformed:
			code = task.ErrorCode(v.RuleID)
		}
	}
	return code
}

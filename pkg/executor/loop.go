package executor

import (
	"context"
	"fmt"

	"assistant/pkg/logx"
	"assistant/pkg/recovery"
	"assistant/pkg/task"
)

// runCorrectionLoop validates the artifact and drives the bounded
// correct-revalidate cycle. The loop terminates when error violations clear,
// the attempt budget is exhausted, or a cleared violation reappears
// (oscillation).
func (e *Executor) runCorrectionLoop(ctx context.Context, step *task.Step, artifact string) (*task.StepResult, error) {
	if err := transition(step, task.StatusValidating); err != nil {
		return nil, err
	}

	vr := e.registry.ValidateCode(artifact)
	blocking, advisory := recovery.FilterCriticalErrors(vr.Violations)

	// history[0] is the initial validation; history[i] is attempt i.
	// Retained to detect violations that toggle rather than resolve.
	history := []map[string]bool{ruleSet(blocking)}

	for attempt := 1; len(blocking) > 0; attempt++ {
		if attempt > e.maxAttempts {
			return e.fail(step, vr.Violations, task.NewDomainError(task.ErrValidation, step.ID,
				fmt.Errorf("%d error violation(s) remain after %d attempt(s)", len(blocking), e.maxAttempts)))
		}
		// Cancellation is honored only between attempts, never inside a
		// call/validation pair.
		if err := ctx.Err(); err != nil {
			return e.fail(step, vr.Violations, err)
		}

		if err := transition(step, task.StatusCorrecting); err != nil {
			return nil, err
		}
		corrected, err := e.requestCorrection(ctx, step, artifact, blocking)
		if err != nil {
			return e.fail(step, vr.Violations, err)
		}
		artifact = corrected
		step.Artifact = artifact

		// Mandatory re-validation. A fix for one rule can reintroduce a
		// violation of another; deciding anything on the corrected
		// artifact without re-running the validator is what turns a
		// bounded loop into an unbounded one.
		if err := transition(step, task.StatusValidating); err != nil {
			return nil, err
		}
		vr = e.registry.ValidateCode(artifact)
		blocking, advisory = recovery.FilterCriticalErrors(vr.Violations)
		logx.Debugd("executor", "step %s attempt %d: %d error(s), %d warning(s)",
			step.ID, attempt, len(blocking), len(advisory))

		step.Attempts = append(step.Attempts, task.ExecutionAttempt{
			Index:      attempt,
			Artifact:   artifact,
			Violations: vr.Violations,
		})
		e.progress(fmt.Sprintf("step %s: correction attempt %d/%d, %d error(s), %d warning(s) remain",
			step.ID, attempt, e.maxAttempts, len(blocking), len(advisory)))

		// Persist at the attempt boundary so the file on disk always
		// matches the last completed attempt.
		if err := e.store.WriteFile(e.sanitize(step.Path), []byte(artifact)); err != nil {
			return e.fail(step, vr.Violations, err)
		}

		history = append(history, ruleSet(blocking))
		if rule := oscillatingRule(history); rule != "" {
			return e.fail(step, vr.Violations, task.NewDomainError(task.ErrOscillation, step.ID,
				fmt.Errorf("rule %s cleared at attempt %d and reappeared at attempt %d", rule, attempt-1, attempt)))
		}
	}

	if err := transition(step, task.StatusDone); err != nil {
		return nil, err
	}
	e.logger.Info("step %s done after %d correction attempt(s)", step.ID, step.AttemptCount())
	return resultOf(step, advisory), nil
}

// ruleSet extracts the violated rule IDs from a violation list.
func ruleSet(violations []task.Violation) map[string]bool {
	set := make(map[string]bool, len(violations))
	for _, v := range violations {
		set[v.RuleID] = true
	}
	return set
}

// oscillatingRule returns a rule that was present two entries ago, absent in
// the previous entry, and present again now: a correction cycle of length 2.
func oscillatingRule(history []map[string]bool) string {
	n := len(history) - 1
	if n < 2 {
		return ""
	}
	cur, prev, prev2 := history[n], history[n-1], history[n-2]
	for rule := range cur {
		if !prev[rule] && prev2[rule] {
			return rule
		}
	}
	return ""
}

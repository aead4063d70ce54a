package task

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies the failure category of a plan or step error.
type ErrorCode string

// Error codes - the failure taxonomy for planning and execution.
const (
	// ErrPlanInvalid marks a malformed or cyclic plan. Fatal, aborts
	// before any step executes.
	ErrPlanInvalid ErrorCode = "PLAN_INVALID"

	// ErrContractViolation marks a hallucinated path/command token.
	// Fatal for the offending step, never retried.
	ErrContractViolation ErrorCode = "CONTRACT_VIOLATION"

	// ErrValidation marks rule violations that survived the correction
	// loop's attempt budget.
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// ErrOscillation marks a correction cycle where a cleared violation
	// reappeared. Aborts early, before the budget is exhausted.
	ErrOscillation ErrorCode = "OSCILLATION"

	// ErrIO marks a workspace I/O failure that recovery could not handle.
	ErrIO ErrorCode = "IO_ERROR"

	// ErrTimeout marks an unresponsive LLM call. The step fails with no
	// further attempts.
	ErrTimeout ErrorCode = "TIMEOUT"

	// ErrGreenfieldRead marks a read of a path neither written earlier in
	// the plan nor present in the workspace.
	ErrGreenfieldRead ErrorCode = "GREENFIELD_READ"

	// ErrPathMalformed marks a structurally broken path.
	ErrPathMalformed ErrorCode = "PATH_MALFORMED"

	// ErrPathPlaceholder marks an unresolved placeholder path segment.
	ErrPathPlaceholder ErrorCode = "PATH_PLACEHOLDER"
)

// DomainError is the error type surfaced for every plan/step failure.
// It always carries the complete attempt history so the root cause stays
// diagnosable, not merely the last attempt.
type DomainError struct {
	Code     ErrorCode
	StepID   string
	Attempts []ExecutionAttempt
	Err      error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.StepID != "" {
		fmt.Fprintf(&b, " (step %s)", e.StepID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if n := len(e.Attempts); n > 0 {
		fmt.Fprintf(&b, " after %d attempt(s)", n)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a DomainError with the given code.
func NewDomainError(code ErrorCode, stepID string, err error) *DomainError {
	return &DomainError{Code: code, StepID: stepID, Err: err}
}

// CodeOf extracts the error code from err, or empty string if err is not a
// DomainError.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err is a DomainError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

package persistence

import (
	"fmt"
	"strings"

	"assistant/pkg/task"
)

// SavePlan records a plan's metadata and its ordered steps.
func SavePlan(plan *task.Plan) error {
	db := GetDB()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO plans (id, session_id, request, task_type, rule_ids, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		plan.ID, GetSessionID(), plan.Request, string(plan.TaskType),
		strings.Join(plan.RuleIDs, ","), plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
	}

	for i, step := range plan.Steps {
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO steps (id, plan_id, position, kind, target, status, last_error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			step.ID, plan.ID, i, string(step.Kind), step.Target(), string(step.Status), step.LastError,
		)
		if err != nil {
			return fmt.Errorf("failed to save step %s: %w", step.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan %s: %w", plan.ID, err)
	}
	return nil
}

// SaveStepOutcome records a step's final status and its full attempt history.
func SaveStepOutcome(planID string, step *task.Step) error {
	db := GetDB()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`UPDATE steps SET status = ?, last_error = ? WHERE plan_id = ? AND id = ?`,
		string(step.Status), step.LastError, planID, step.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update step %s: %w", step.ID, err)
	}

	for i := range step.Attempts {
		attempt := &step.Attempts[i]
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO attempts (plan_id, step_id, attempt_index, artifact)
			 VALUES (?, ?, ?, ?)`,
			planID, step.ID, attempt.Index, attempt.Artifact,
		)
		if err != nil {
			return fmt.Errorf("failed to save attempt %d of step %s: %w", attempt.Index, step.ID, err)
		}
		for j := range attempt.Violations {
			v := &attempt.Violations[j]
			_, err = tx.Exec(
				`INSERT INTO violations (plan_id, step_id, attempt_index, rule_id, severity, message, line)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				planID, step.ID, attempt.Index, v.RuleID, string(v.Severity), v.Message, v.Line,
			)
			if err != nil {
				return fmt.Errorf("failed to save violation for step %s: %w", step.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit step %s: %w", step.ID, err)
	}
	return nil
}

// ViolationCount returns how often a rule fired across the whole store,
// useful for tuning noisy profiles.
func ViolationCount(ruleID string) (int, error) {
	var count int
	err := GetDB().QueryRow(
		`SELECT COUNT(*) FROM violations WHERE rule_id = ?`, ruleID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count violations for %s: %w", ruleID, err)
	}
	return count, nil
}

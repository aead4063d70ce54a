package persistence

import (
	"database/sql"
	"fmt"
)

func initializeSchema(db *sql.DB) error {
	statements := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",

		`CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			request TEXT NOT NULL,
			task_type TEXT NOT NULL,
			rule_ids TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS steps (
			id TEXT NOT NULL,
			plan_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			kind TEXT NOT NULL,
			target TEXT,
			status TEXT NOT NULL,
			last_error TEXT,
			PRIMARY KEY (plan_id, id),
			FOREIGN KEY (plan_id) REFERENCES plans(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS attempts (
			plan_id TEXT NOT NULL,
			step_id TEXT NOT NULL,
			attempt_index INTEGER NOT NULL,
			artifact TEXT,
			PRIMARY KEY (plan_id, step_id, attempt_index),
			FOREIGN KEY (plan_id, step_id) REFERENCES steps(plan_id, id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS violations (
			plan_id TEXT NOT NULL,
			step_id TEXT NOT NULL,
			attempt_index INTEGER NOT NULL,
			rule_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT,
			line INTEGER,
			FOREIGN KEY (plan_id, step_id, attempt_index)
				REFERENCES attempts(plan_id, step_id, attempt_index) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_plans_session ON plans(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_violations_rule ON violations(rule_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// Table names.
const (
	tableAttempts    = "attempt_events"
	tableLLMRequests = "llm_request_events"
	tableManifests   = "agent_manifests"
)

// migrations create every table the store uses. Each statement is
// idempotent so Open can run them on every start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`,
	`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`,
	`CREATE TABLE IF NOT EXISTS attempt_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL UNIQUE,
		idempotency_key TEXT NOT NULL UNIQUE,
		learner_id TEXT NOT NULL,
		cell_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		answer TEXT NOT NULL,
		correct INTEGER NOT NULL,
		tier TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attempt_learner_cell
		ON attempt_events (learner_id, cell_id, sequence)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL UNIQUE,
		timestamp INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS agent_manifests (
		cell_id TEXT PRIMARY KEY,
		detail TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

func migrate(ctx context.Context, drv *entsql.Driver) error {
	for _, stmt := range migrations {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}

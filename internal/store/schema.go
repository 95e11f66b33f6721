package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// Table names.
const (
	tableTransitions = "transitions"
	tableAnswers     = "answers"
	tableSnapshots   = "snapshots"
	tableLLMCalls    = "llm_calls"
)

// Every event row carries the global sequence as its key, so rows of
// different tables can be merged into one timeline.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS transitions (
		sequence INTEGER PRIMARY KEY,
		session_id TEXT NOT NULL,
		op TEXT NOT NULL,
		from_state TEXT NOT NULL,
		to_state TEXT NOT NULL,
		version INTEGER NOT NULL,
		at_ms INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transitions_session ON transitions (session_id, sequence)`,
	`CREATE TABLE IF NOT EXISTS answers (
		sequence INTEGER PRIMARY KEY,
		session_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		lesson_id TEXT NOT NULL,
		tier TEXT NOT NULL,
		round INTEGER NOT NULL,
		choice INTEGER NOT NULL,
		correct INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		at_ms INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS answers_session ON answers (session_id, sequence)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		sequence INTEGER PRIMARY KEY,
		session_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		state TEXT NOT NULL,
		at_ms INTEGER NOT NULL,
		data TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS snapshots_session ON snapshots (session_id, version)`,
	`CREATE TABLE IF NOT EXISTS llm_calls (
		sequence INTEGER PRIMARY KEY,
		session_id TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		at_ms INTEGER NOT NULL
	)`,
}

func migrate(ctx context.Context, drv *entsql.Driver) error {
	for _, stmt := range ddl {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// createRunsTable bootstraps the archive schema. A single table is enough:
// the report itself is stored as JSONB and queried rarely.
const createRunsTable = `
CREATE TABLE IF NOT EXISTS triage_runs (
	id             BIGSERIAL PRIMARY KEY,
	run_id         UUID NOT NULL UNIQUE,
	status         TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	completed_at   TIMESTAMPTZ NOT NULL,
	total_items    INTEGER NOT NULL DEFAULT 0,
	relevant_items INTEGER NOT NULL DEFAULT 0,
	general_items  INTEGER NOT NULL DEFAULT 0,
	replies_sent   INTEGER NOT NULL DEFAULT 0,
	replies_failed INTEGER NOT NULL DEFAULT 0,
	report         JSONB,
	error_msg      TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS triage_runs_started_at_idx ON triage_runs (started_at DESC);
`

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, createRunsTable); err != nil {
		return fmt.Errorf("bootstrapping archive schema: %w", err)
	}
	return nil
}

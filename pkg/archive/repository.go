// Package archive persists completed run records to Postgres. Archival is
// optional: a nil *Repository disables it, and archive failures are logged
// without affecting the run outcome.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/otherjamesbrown/triage-cli/pkg/db"
	triageerrors "github.com/otherjamesbrown/triage-cli/pkg/errors"
	"github.com/otherjamesbrown/triage-cli/pkg/logging"
	"github.com/otherjamesbrown/triage-cli/pkg/triage"
)

// RunStatus is the terminal state of an archived run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord is the data archived for one pipeline run.
type RunRecord struct {
	RunID         string
	Status        RunStatus
	StartedAt     time.Time
	CompletedAt   time.Time
	TotalItems    int
	RelevantItems int
	GeneralItems  int
	RepliesSent   int
	RepliesFailed int
	Report        *triage.Report
	ErrorMsg      string
}

// StoredRun echoes the identifiers of an archived run.
type StoredRun struct {
	ID        int64
	RunID     string
	CreatedAt time.Time
}

// RunSummary is the listing view of an archived run.
type RunSummary struct {
	ID            int64
	RunID         string
	Status        RunStatus
	StartedAt     time.Time
	CompletedAt   time.Time
	TotalItems    int
	RelevantItems int
	RepliesSent   int
}

// Repository provides database operations for the run archive.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a run archive repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "run_archive")),
	}
}

// Connect opens a pgx pool against the given DSN, verifies connectivity,
// and bootstraps the schema.
func Connect(ctx context.Context, dsn string, logger logging.Logger) (*Repository, error) {
	pool, err := db.Connect(ctx, db.DefaultConfig(dsn))
	if err != nil {
		return nil, fmt.Errorf("connecting to archive database: %v: %w", err, triageerrors.ErrStoreUnavailable)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		db.Close(pool)
		return nil, err
	}
	return NewRepository(pool, logger), nil
}

// Pool exposes the underlying pool, for stats collection.
func (r *Repository) Pool() *pgxpool.Pool {
	if r == nil {
		return nil
	}
	return r.pool
}

// Close releases the underlying pool.
func (r *Repository) Close() {
	if r != nil {
		db.Close(r.pool)
	}
}

// RecordRun inserts one run record. A missing RunID gets a fresh UUID.
func (r *Repository) RecordRun(ctx context.Context, record *RunRecord) (*StoredRun, error) {
	runID := record.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	reportJSON, err := json.Marshal(record.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO triage_runs (
			run_id, status, started_at, completed_at,
			total_items, relevant_items, general_items,
			replies_sent, replies_failed, report, error_msg,
			created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11,
			NOW()
		)
		RETURNING id, created_at
	`

	result := StoredRun{RunID: runID}
	err = r.pool.QueryRow(ctx, query,
		runID,
		record.Status,
		record.StartedAt,
		record.CompletedAt,
		record.TotalItems,
		record.RelevantItems,
		record.GeneralItems,
		record.RepliesSent,
		record.RepliesFailed,
		reportJSON,
		record.ErrorMsg,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to archive run",
			logging.Err(err), logging.F("run_id", runID))
		return nil, fmt.Errorf("failed to archive run: %w", err)
	}

	r.logger.Debug("Run archived",
		logging.F("id", result.ID), logging.F("run_id", runID))
	return &result, nil
}

// ListRuns returns the most recent archived runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, run_id, status, started_at, completed_at,
		       total_items, relevant_items, replies_sent
		FROM triage_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.ID, &run.RunID, &run.Status, &run.StartedAt,
			&run.CompletedAt, &run.TotalItems, &run.RelevantItems, &run.RepliesSent); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetReport loads the archived report for one run.
func (r *Repository) GetReport(ctx context.Context, runID string) (*triage.Report, error) {
	query := `SELECT report FROM triage_runs WHERE run_id = $1`

	var reportJSON []byte
	err := r.pool.QueryRow(ctx, query, runID).Scan(&reportJSON)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", runID, triageerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run report: %w", err)
	}

	var report triage.Report
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, fmt.Errorf("failed to decode archived report: %w", err)
	}
	return &report, nil
}

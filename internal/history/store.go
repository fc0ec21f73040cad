// Package history persists run and per-job outcome rows to PostgreSQL.
// History is observability only: write failures are logged and never fail
// the batch.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/clipfetch/internal/outcome"
	"github.com/cuongbtq/clipfetch/internal/worker/domain"
	"github.com/cuongbtq/clipfetch/shared/postgresql"
)

// Schema expected by the store:
//
//	CREATE TABLE runs (
//	    run_id       UUID PRIMARY KEY,
//	    manifest     TEXT NOT NULL,
//	    total_jobs   INT NOT NULL,
//	    succeeded    INT,
//	    failed       INT,
//	    started_at   TIMESTAMPTZ NOT NULL,
//	    finished_at  TIMESTAMPTZ
//	);
//
//	CREATE TABLE job_outcomes (
//	    id           BIGSERIAL PRIMARY KEY,
//	    run_id       UUID NOT NULL REFERENCES runs(run_id),
//	    video_id     TEXT NOT NULL,
//	    status       TEXT NOT NULL,
//	    detail       TEXT,
//	    elapsed_ms   BIGINT NOT NULL,
//	    recorded_at  TIMESTAMPTZ NOT NULL
//	);

const writeTimeout = 5 * time.Second

// Store handles all database operations for the run history
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
	runID  string
}

// NewStore creates a new Store bound to one run.
func NewStore(client *postgresql.Client, logger *slog.Logger, runID string) *Store {
	return &Store{
		db:     client.GetDB(),
		logger: logger,
		runID:  runID,
	}
}

// StartRun inserts the run row before any job is dispatched.
func (s *Store) StartRun(ctx context.Context, manifestPath string, totalJobs int) error {
	query := `
		INSERT INTO runs (run_id, manifest, total_jobs, started_at)
		VALUES ($1, $2, $3, NOW())
	`

	if _, err := s.db.ExecContext(ctx, query, s.runID, manifestPath, totalJobs); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	s.logger.Info("Run recorded in history",
		slog.String("run_id", s.runID),
		slog.Int("total_jobs", totalJobs),
	)
	return nil
}

// Record inserts one outcome row. It satisfies worker.OutcomeRecorder and
// outcome.Recorder so it can sit behind the same fan-out as the TSV sink.
func (s *Store) Record(o domain.Outcome) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	query := `
		INSERT INTO job_outcomes (run_id, video_id, status, detail, elapsed_ms, recorded_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := s.db.ExecContext(ctx, query, s.runID, o.VideoID, o.Status, o.Detail, o.Elapsed.Milliseconds())
	if err != nil {
		// Logged by the caller; history must never fail the run.
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// FinishRun stamps the run row with final counters.
func (s *Store) FinishRun(ctx context.Context, counts outcome.Counts) error {
	query := `
		UPDATE runs
		SET succeeded = $1,
		    failed = $2,
		    finished_at = NOW()
		WHERE run_id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, counts.Succeeded, counts.Failed, s.runID); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	s.logger.Info("Run history finalized",
		slog.String("run_id", s.runID),
		slog.Int("succeeded", counts.Succeeded),
		slog.Int("failed", counts.Failed),
	)
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"basic-cleaning/models"
)

// PostgresTracker records runs in a PostgreSQL "runs" table.
type PostgresTracker struct {
	db *sql.DB
}

// NewPostgresTracker opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresTracker.
func NewPostgresTracker(ctx context.Context, dsn string) (*PostgresTracker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	pt := &PostgresTracker{db: db}
	if err := pt.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pt, nil
}

func (pt *PostgresTracker) migrate(ctx context.Context) error {
	_, err := pt.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT        PRIMARY KEY,
			job_type    TEXT        NOT NULL,
			config      JSONB       NOT NULL DEFAULT '{}',
			status      VARCHAR(16) NOT NULL,
			input_ref   TEXT        NOT NULL DEFAULT '',
			output_id   TEXT        NOT NULL DEFAULT '',
			error       TEXT        NOT NULL DEFAULT '',
			started_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_runs_job_type ON runs(job_type);
		CREATE INDEX IF NOT EXISTS idx_runs_status   ON runs(status);
	`)
	return err
}

// Start inserts run in the running state.
func (pt *PostgresTracker) Start(ctx context.Context, run *models.Run) error {
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("postgres: encode run config: %w", err)
	}
	_, err = pt.db.ExecContext(ctx, `
		INSERT INTO runs (id, job_type, config, status, input_ref, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.JobType, string(cfg), string(run.Status), run.InputRef, run.StartedAt)
	if err != nil {
		return fmt.Errorf("postgres: start run %s: %w", run.ID, err)
	}
	return nil
}

// Finish stores the terminal state of run.
func (pt *PostgresTracker) Finish(ctx context.Context, run *models.Run) error {
	res, err := pt.db.ExecContext(ctx, `
		UPDATE runs
		SET status = $2, output_id = $3, error = $4, finished_at = $5
		WHERE id = $1
	`, run.ID, string(run.Status), run.OutputID, run.Error, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("postgres: finish run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("postgres: finish run %s: run was never started", run.ID)
	}
	return nil
}

// Get loads a run by ID.
func (pt *PostgresTracker) Get(ctx context.Context, id string) (*models.Run, error) {
	var (
		run      models.Run
		status   string
		cfg      []byte
		finished sql.NullTime
	)
	err := pt.db.QueryRowContext(ctx, `
		SELECT id, job_type, config, status, input_ref, output_id, error, started_at, finished_at
		FROM runs
		WHERE id = $1
	`, id).Scan(&run.ID, &run.JobType, &cfg, &status, &run.InputRef, &run.OutputID,
		&run.Error, &run.StartedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("postgres: get run %s: %w", id, err)
	}
	run.Status = models.RunStatus(status)
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	if err := json.Unmarshal(cfg, &run.Config); err != nil {
		return nil, fmt.Errorf("postgres: decode run config: %w", err)
	}
	return &run, nil
}

func (pt *PostgresTracker) Close() error {
	return pt.db.Close()
}

package storage

import (
	"context"
	"log/slog"
	"time"

	"basic-cleaning/models"
)

// LogTracker records runs only in the log. It is used when no tracking
// database is configured.
type LogTracker struct {
	logger *slog.Logger
}

func NewLogTracker(logger *slog.Logger) *LogTracker {
	return &LogTracker{logger: logger}
}

func (lt *LogTracker) Start(_ context.Context, run *models.Run) error {
	lt.logger.Info("Run started", "run_id", run.ID, "job_type", run.JobType, "input", run.InputRef)
	return nil
}

func (lt *LogTracker) Finish(_ context.Context, run *models.Run) error {
	lt.logger.Info("Run finished",
		"run_id", run.ID,
		"status", run.Status,
		"output", run.OutputID,
		"error", run.Error,
		"duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	return nil
}

func (lt *LogTracker) Close() error { return nil }

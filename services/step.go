package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"basic-cleaning/models"
	"basic-cleaning/storage"
)

// JobType is the job type recorded for every run of the step.
const JobType = "basic_cleaning"

// Params are the caller-supplied arguments of one run.
type Params struct {
	InputArtifact     string
	OutputArtifact    string
	OutputType        string
	OutputDescription string
	MinPrice          float64
	MaxPrice          float64
}

func (p Params) Bounds() models.Bounds {
	return models.Bounds{Min: p.MinPrice, Max: p.MaxPrice}
}

func (p Params) config() map[string]any {
	return map[string]any{
		"input_artifact":     p.InputArtifact,
		"output_artifact":    p.OutputArtifact,
		"output_type":        p.OutputType,
		"output_description": p.OutputDescription,
		"min_price":          p.MinPrice,
		"max_price":          p.MaxPrice,
	}
}

// Step fetches a dataset artifact, cleans it and publishes the result as a
// new artifact version.
type Step struct {
	store       storage.ArtifactStore
	tracker     storage.RunTracker
	cleaner     *Cleaner
	insights    *InsightService
	logger      *slog.Logger
	stagingFile string
	report      io.Writer
	now         func() time.Time
}

// StepOption customises a Step.
type StepOption func(*Step)

// WithStagingFile sets where the cleaned CSV is written before upload.
func WithStagingFile(path string) StepOption {
	return func(s *Step) { s.stagingFile = path }
}

// WithReport sets where the cleaning summary is printed. nil disables it.
func WithReport(w io.Writer) StepOption {
	return func(s *Step) { s.report = w }
}

func NewStep(store storage.ArtifactStore, tracker storage.RunTracker, logger *slog.Logger, opts ...StepOption) *Step {
	s := &Step{
		store:       store,
		tracker:     tracker,
		cleaner:     NewCleaner(logger),
		insights:    NewInsightService(logger),
		logger:      logger,
		stagingFile: "clean_sample.csv",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one fetch, clean, persist, publish pass and returns the ID of
// the published artifact. Nothing is published unless every earlier stage
// succeeded.
func (s *Step) Run(ctx context.Context, p Params) (artifactID string, err error) {
	run := &models.Run{
		ID:        uuid.NewString(),
		JobType:   JobType,
		Config:    p.config(),
		Status:    models.RunRunning,
		InputRef:  p.InputArtifact,
		StartedAt: s.now().UTC(),
	}

	s.logger.Info("Create a run", "run_id", run.ID, "job_type", JobType)
	if err := s.tracker.Start(ctx, run); err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	defer func() {
		run.FinishedAt = s.now().UTC()
		run.OutputID = artifactID
		run.Status = models.RunFinished
		if err != nil {
			run.Status = models.RunFailed
			run.Error = err.Error()
		}
		// The run record must land even if ctx was cancelled mid-run.
		if ferr := s.tracker.Finish(context.WithoutCancel(ctx), run); ferr != nil {
			s.logger.Warn("Failed to record run outcome", "run_id", run.ID, "error", ferr)
			err = errors.Join(err, ferr)
		}
	}()

	return s.execute(ctx, p)
}

func (s *Step) execute(ctx context.Context, p Params) (string, error) {
	s.logger.Info("Download input artifact", "artifact", p.InputArtifact)
	localPath, err := s.store.Fetch(ctx, p.InputArtifact)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", p.InputArtifact, err)
	}

	raw, err := storage.ReadCSV(localPath)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", p.InputArtifact, err)
	}

	clean, err := s.cleaner.Clean(ctx, raw, p.Bounds())
	if err != nil {
		return "", fmt.Errorf("clean %s: %w", p.InputArtifact, err)
	}

	if s.report != nil {
		s.insights.Print(s.report, s.insights.Generate(raw, clean, p.Bounds()))
	}

	s.logger.Info("Save the cleaned dataset", "path", s.stagingFile, "rows", clean.Len())
	if err := storage.WriteCSV(s.stagingFile, clean); err != nil {
		return "", err
	}

	s.logger.Info("Upload artifact", "artifact", p.OutputArtifact, "type", p.OutputType)
	id, err := s.store.Publish(ctx, s.stagingFile, models.Artifact{
		Name:        p.OutputArtifact,
		Type:        p.OutputType,
		Description: p.OutputDescription,
	})
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", p.OutputArtifact, err)
	}

	s.logger.Info("Published artifact", "id", id)
	return id, nil
}

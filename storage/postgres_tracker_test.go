package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basic-cleaning/models"
)

// Requires a reachable PostgreSQL instance, e.g.
// TRACKING_TEST_DSN="host=localhost user=postgres password=postgres sslmode=disable".
func TestPostgresTrackerLifecycle(t *testing.T) {
	dsn := os.Getenv("TRACKING_TEST_DSN")
	if dsn == "" {
		t.Skip("TRACKING_TEST_DSN not set")
	}
	ctx := context.Background()

	tracker, err := NewPostgresTracker(ctx, dsn)
	require.NoError(t, err)
	defer tracker.Close()

	run := &models.Run{
		ID:        uuid.NewString(),
		JobType:   "basic_cleaning",
		Config:    map[string]any{"min_price": 10.0, "max_price": 350.0},
		Status:    models.RunRunning,
		InputRef:  "sample.csv:latest",
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, tracker.Start(ctx, run))

	run.Status = models.RunFinished
	run.OutputID = "clean_sample.csv:v0"
	run.FinishedAt = run.StartedAt.Add(time.Second)
	require.NoError(t, tracker.Finish(ctx, run))

	got, err := tracker.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunFinished, got.Status)
	assert.Equal(t, "clean_sample.csv:v0", got.OutputID)
	assert.Equal(t, 350.0, got.Config["max_price"])
	assert.True(t, got.FinishedAt.Equal(run.FinishedAt))

	require.Error(t, tracker.Finish(ctx, &models.Run{ID: uuid.NewString(), Status: models.RunFailed}))
}

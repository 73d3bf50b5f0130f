package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basic-cleaning/models"
	"basic-cleaning/storage"
	"basic-cleaning/utils"
)

type recordingTracker struct {
	started  []models.Run
	finished []models.Run
}

func (r *recordingTracker) Start(_ context.Context, run *models.Run) error {
	r.started = append(r.started, *run)
	return nil
}

func (r *recordingTracker) Finish(_ context.Context, run *models.Run) error {
	r.finished = append(r.finished, *run)
	return nil
}

func (r *recordingTracker) Close() error { return nil }

type failingPublishStore struct {
	storage.ArtifactStore
	err error
}

func (f failingPublishStore) Publish(context.Context, string, models.Artifact) (string, error) {
	return "", f.err
}

const sampleCSV = `id,name,price,last_review
1,Cozy loft,10,2019-01-01
2,Sunny room,50,not-a-date
3,Penthouse,999,2019-03-03
4,Broken,-5,
5,Studio,120,
`

func seedStore(t *testing.T, content string) *storage.LocalStore {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir(), utils.NopLogger())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "sample.csv")
	require.NoError(t, os.WriteFile(src, []byte(content), 0644))
	_, err = store.Publish(context.Background(), src, models.Artifact{Name: "sample.csv", Type: "raw_data"})
	require.NoError(t, err)
	return store
}

func testParams() Params {
	return Params{
		InputArtifact:     "sample.csv:latest",
		OutputArtifact:    "clean_sample.csv",
		OutputType:        "clean_sample",
		OutputDescription: "Data with outliers and null values removed",
		MinPrice:          10,
		MaxPrice:          500,
	}
}

func TestStepRunPublishesCleanedArtifact(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, sampleCSV)
	tracker := &recordingTracker{}
	staging := filepath.Join(t.TempDir(), "clean_sample.csv")
	var report bytes.Buffer

	step := NewStep(store, tracker, utils.NopLogger(), WithStagingFile(staging), WithReport(&report))
	id, err := step.Run(ctx, testParams())
	require.NoError(t, err)
	assert.Equal(t, "clean_sample.csv:v0", id)

	p, err := store.Fetch(ctx, id)
	require.NoError(t, err)
	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "id,name,price,last_review\n"+
		"1,Cozy loft,10,2019-01-01\n"+
		"2,Sunny room,50,\n"+
		"5,Studio,120,\n", string(got))

	staged, err := os.ReadFile(staging)
	require.NoError(t, err)
	assert.Equal(t, got, staged)

	require.Len(t, tracker.started, 1)
	require.Len(t, tracker.finished, 1)
	assert.Equal(t, models.RunFinished, tracker.finished[0].Status)
	assert.Equal(t, id, tracker.finished[0].OutputID)
	assert.Equal(t, JobType, tracker.finished[0].JobType)
	assert.Equal(t, 500.0, tracker.started[0].Config["max_price"])
	assert.Contains(t, report.String(), "Rows out           : 3")
}

func TestStepRunMissingPriceColumn(t *testing.T) {
	store := seedStore(t, "id,last_review\n1,2019-01-01\n")
	tracker := &recordingTracker{}
	staging := filepath.Join(t.TempDir(), "clean_sample.csv")

	_, err := NewStep(store, tracker, utils.NopLogger(), WithStagingFile(staging)).Run(context.Background(), testParams())
	require.ErrorIs(t, err, models.ErrMissingColumn)

	_, statErr := os.Stat(staging)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "staging file must not be written")

	_, err = store.Fetch(context.Background(), "clean_sample.csv")
	assert.ErrorIs(t, err, models.ErrArtifactNotFound)

	require.Len(t, tracker.finished, 1)
	assert.Equal(t, models.RunFailed, tracker.finished[0].Status)
	assert.NotEmpty(t, tracker.finished[0].Error)
}

func TestStepRunFetchFailure(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), utils.NopLogger())
	require.NoError(t, err)
	tracker := &recordingTracker{}

	_, err = NewStep(store, tracker, utils.NopLogger(), WithStagingFile(filepath.Join(t.TempDir(), "out.csv"))).
		Run(context.Background(), testParams())
	require.ErrorIs(t, err, models.ErrArtifactNotFound)
	assert.Equal(t, models.RunFailed, tracker.finished[0].Status)
}

func TestStepRunPublishFailure(t *testing.T) {
	publishErr := errors.New("quota exceeded")
	store := failingPublishStore{ArtifactStore: seedStore(t, sampleCSV), err: publishErr}
	tracker := &recordingTracker{}

	id, err := NewStep(store, tracker, utils.NopLogger(), WithStagingFile(filepath.Join(t.TempDir(), "out.csv"))).
		Run(context.Background(), testParams())
	require.ErrorIs(t, err, publishErr)
	assert.Empty(t, id)
	assert.Equal(t, models.RunFailed, tracker.finished[0].Status)
	assert.Empty(t, tracker.finished[0].OutputID)
}

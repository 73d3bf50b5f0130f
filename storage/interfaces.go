package storage

import (
	"context"

	"basic-cleaning/models"
)

// ArtifactStore resolves artifact references to local files and registers
// new artifact versions.
type ArtifactStore interface {
	// Fetch resolves ref ("name" or "name:version") to a local file path.
	Fetch(ctx context.Context, ref string) (string, error)
	// Publish registers a new version of a with the file at localPath as its
	// only payload and returns the new artifact's ID.
	Publish(ctx context.Context, localPath string, a models.Artifact) (string, error)
}

// RunTracker records the lifecycle of a run.
type RunTracker interface {
	Start(ctx context.Context, run *models.Run) error
	Finish(ctx context.Context, run *models.Run) error
	Close() error
}

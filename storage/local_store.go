package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"basic-cleaning/models"
)

// LocalStore keeps artifacts in a directory tree:
//
//	<root>/<name>/v<N>/<file>
//	<root>/<name>/v<N>/manifest.yaml
//	<root>/<name>/latest
type LocalStore struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string, logger *slog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("local store: create root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("local store: resolve root: %w", err)
	}
	return &LocalStore{root: abs, logger: logger, now: time.Now}, nil
}

func (s *LocalStore) Fetch(ctx context.Context, ref string) (string, error) {
	r, err := models.ParseArtifactRef(ref)
	if err != nil {
		return "", err
	}

	version := r.Version
	if version == models.LatestVersion {
		b, err := os.ReadFile(filepath.Join(s.root, r.Name, latestName))
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("local store: %s: %w", r, models.ErrArtifactNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("local store: read latest pointer for %s: %w", r.Name, err)
		}
		version = strings.TrimSpace(string(b))
	}

	dir := filepath.Join(s.root, r.Name, version)
	b, err := os.ReadFile(filepath.Join(dir, manifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("local store: %s: %w", r, models.ErrArtifactNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("local store: read manifest for %s: %w", r, err)
	}
	a, err := decodeManifest(b)
	if err != nil {
		return "", err
	}

	p := filepath.Join(dir, a.Files[0])
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("local store: payload of %s: %w", a.ID(), err)
	}
	s.logger.Debug("Resolved artifact", "ref", ref, "id", a.ID(), "path", p)
	return p, nil
}

func (s *LocalStore) Publish(ctx context.Context, localPath string, a models.Artifact) (string, error) {
	if _, err := models.ParseArtifactRef(a.Name); err != nil {
		return "", err
	}
	nameDir := filepath.Join(s.root, a.Name)
	if err := os.MkdirAll(nameDir, 0755); err != nil {
		return "", fmt.Errorf("local store: create %s: %w", nameDir, err)
	}

	entries, err := os.ReadDir(nameDir)
	if err != nil {
		return "", fmt.Errorf("local store: list versions of %s: %w", a.Name, err)
	}
	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			labels = append(labels, e.Name())
		}
	}

	a.Version = nextVersion(labels)
	a.Files = []string{payloadName(localPath)}
	a.CreatedAt = s.now().UTC()

	staging := filepath.Join(nameDir, ".staging-"+uuid.NewString())
	if err := os.Mkdir(staging, 0755); err != nil {
		return "", fmt.Errorf("local store: create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := copyFile(localPath, filepath.Join(staging, a.Files[0])); err != nil {
		return "", fmt.Errorf("local store: stage payload: %w", err)
	}
	manifest, err := encodeManifest(&a)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(staging, manifestName), manifest, 0644); err != nil {
		return "", fmt.Errorf("local store: write manifest: %w", err)
	}

	if err := os.Rename(staging, filepath.Join(nameDir, a.Version)); err != nil {
		return "", fmt.Errorf("local store: register %s: %w", a.ID(), err)
	}
	if err := writeFileAtomic(filepath.Join(nameDir, latestName), []byte(a.Version+"\n")); err != nil {
		return "", fmt.Errorf("local store: update latest pointer: %w", err)
	}

	s.logger.Debug("Published artifact", "id", a.ID(), "type", a.Type)
	return a.ID(), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"basic-cleaning/models"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps artifacts as objects using the same layout as LocalStore,
// rooted at an optional key prefix.
type S3Store struct {
	client  S3API
	bucket  string
	prefix  string
	tempDir string
	logger  *slog.Logger
	now     func() time.Time
}

// S3StoreConfig holds configuration for creating an S3Store.
type S3StoreConfig struct {
	Bucket string
	Prefix string
	// TempDir receives fetched payloads. Defaults to os.TempDir().
	TempDir string
}

// NewS3Store creates an S3Store on top of an existing client.
func NewS3Store(client S3API, cfg S3StoreConfig, logger *slog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 store: bucket is required")
	}
	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		tempDir: cfg.TempDir,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (s *S3Store) key(parts ...string) string {
	if s.prefix != "" {
		parts = append([]string{s.prefix}, parts...)
	}
	return path.Join(parts...)
}

func (s *S3Store) Fetch(ctx context.Context, ref string) (string, error) {
	r, err := models.ParseArtifactRef(ref)
	if err != nil {
		return "", err
	}

	version := r.Version
	if version == models.LatestVersion {
		b, err := s.get(ctx, s.key(r.Name, latestName))
		if err != nil {
			return "", fmt.Errorf("s3 store: resolve %s: %w", r, err)
		}
		version = strings.TrimSpace(string(b))
	}

	b, err := s.get(ctx, s.key(r.Name, version, manifestName))
	if err != nil {
		return "", fmt.Errorf("s3 store: manifest for %s:%s: %w", r.Name, version, err)
	}
	a, err := decodeManifest(b)
	if err != nil {
		return "", err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(r.Name, version, a.Files[0])),
	})
	if err != nil {
		return "", fmt.Errorf("s3 store: payload of %s: %w", a.ID(), notFound(err))
	}
	defer out.Body.Close()

	dir, err := os.MkdirTemp(s.tempDir, "artifact-"+r.Name+"-")
	if err != nil {
		return "", fmt.Errorf("s3 store: create download dir: %w", err)
	}
	p := filepath.Join(dir, a.Files[0])
	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("s3 store: create %q: %w", p, err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("s3 store: download %s: %w", a.ID(), err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	s.logger.Debug("Downloaded artifact", "id", a.ID(), "bucket", s.bucket, "path", p)
	return p, nil
}

// Publish uploads the payload and manifest under a new version, then moves
// the latest pointer. Until the pointer is written the version is not
// reachable through "latest".
func (s *S3Store) Publish(ctx context.Context, localPath string, a models.Artifact) (string, error) {
	if _, err := models.ParseArtifactRef(a.Name); err != nil {
		return "", err
	}

	labels, err := s.versions(ctx, a.Name)
	if err != nil {
		return "", err
	}
	a.Version = nextVersion(labels)
	a.Files = []string{payloadName(localPath)}
	a.CreatedAt = s.now().UTC()

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("s3 store: open payload: %w", err)
	}
	defer f.Close()

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(a.Name, a.Version, a.Files[0])),
		Body:        f,
		ContentType: aws.String("text/csv"),
	}); err != nil {
		return "", fmt.Errorf("s3 store: upload payload of %s: %w", a.ID(), err)
	}

	manifest, err := encodeManifest(&a)
	if err != nil {
		return "", err
	}
	if err := s.put(ctx, s.key(a.Name, a.Version, manifestName), manifest, "application/yaml"); err != nil {
		return "", fmt.Errorf("s3 store: upload manifest of %s: %w", a.ID(), err)
	}
	if err := s.put(ctx, s.key(a.Name, latestName), []byte(a.Version+"\n"), "text/plain"); err != nil {
		return "", fmt.Errorf("s3 store: update latest pointer of %s: %w", a.Name, err)
	}

	s.logger.Debug("Published artifact", "id", a.ID(), "bucket", s.bucket)
	return a.ID(), nil
}

// versions lists the "vN" labels already present under name.
func (s *S3Store) versions(ctx context.Context, name string) ([]string, error) {
	base := s.key(name) + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(base),
		Delimiter: aws.String("/"),
	})

	var labels []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 store: list versions of %s: %w", name, err)
		}
		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			labels = append(labels, strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, base), "/"))
		}
	}
	return labels, nil
}

func (s *S3Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, notFound(err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Store) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}

// notFound maps S3 "missing key" errors onto ErrArtifactNotFound.
func notFound(err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %v", models.ErrArtifactNotFound, err)
	}
	return err
}

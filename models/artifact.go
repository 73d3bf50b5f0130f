package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrArtifactNotFound is returned when a reference cannot be resolved.
var ErrArtifactNotFound = errors.New("artifact not found")

// LatestVersion is the alias resolved to the newest published version.
const LatestVersion = "latest"

// Artifact is a named, typed, described bundle of files.
type Artifact struct {
	Name        string    `yaml:"name"`
	Type        string    `yaml:"type"`
	Description string    `yaml:"description"`
	Version     string    `yaml:"version"`
	Files       []string  `yaml:"files"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// ID returns the "name:version" identifier of a published artifact.
func (a *Artifact) ID() string {
	return a.Name + ":" + a.Version
}

// ArtifactRef points at one version of a named artifact.
type ArtifactRef struct {
	Name    string
	Version string
}

// ParseArtifactRef parses "name" or "name:version". A bare name refers to
// the latest version.
func ParseArtifactRef(s string) (ArtifactRef, error) {
	s = strings.TrimSpace(s)
	name, version, found := strings.Cut(s, ":")
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ArtifactRef{}, fmt.Errorf("invalid artifact reference %q", s)
	}
	if !found || version == "" {
		version = LatestVersion
	}
	if strings.ContainsAny(version, `/\:`) {
		return ArtifactRef{}, fmt.Errorf("invalid artifact version in %q", s)
	}
	return ArtifactRef{Name: name, Version: version}, nil
}

func (r ArtifactRef) String() string {
	return r.Name + ":" + r.Version
}

// RunStatus is the terminal or in-flight state of a Run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// Run is one execution of the cleaning step as recorded by a tracker.
type Run struct {
	ID         string
	JobType    string
	Config     map[string]any
	Status     RunStatus
	InputRef   string
	OutputID   string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

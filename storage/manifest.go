package storage

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"basic-cleaning/models"
)

const (
	manifestName = "manifest.yaml"
	latestName   = "latest"
)

func encodeManifest(a *models.Artifact) ([]byte, error) {
	b, err := yaml.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode %s: %w", a.ID(), err)
	}
	return b, nil
}

func decodeManifest(b []byte) (*models.Artifact, error) {
	var a models.Artifact
	if err := yaml.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	if len(a.Files) == 0 {
		return nil, fmt.Errorf("manifest: artifact %s has no files", a.ID())
	}
	return &a, nil
}

// parseVersion returns N for a version label of the form "vN".
func parseVersion(label string) (int, bool) {
	if !strings.HasPrefix(label, "v") {
		return 0, false
	}
	n, err := strconv.Atoi(label[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func versionLabel(n int) string {
	return "v" + strconv.Itoa(n)
}

// nextVersion returns the label following the highest "vN" in labels, or
// "v0" when there is none.
func nextVersion(labels []string) string {
	nums := make([]int, 0, len(labels))
	for _, l := range labels {
		if n, ok := parseVersion(l); ok {
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		return versionLabel(0)
	}
	sort.Ints(nums)
	return versionLabel(nums[len(nums)-1] + 1)
}

// payloadName is the file name a payload is stored under.
func payloadName(localPath string) string {
	return path.Base(strings.ReplaceAll(localPath, `\`, "/"))
}

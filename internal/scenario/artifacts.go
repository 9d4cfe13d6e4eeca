// internal/scenario/artifacts.go
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Manifest describes the files written for one scenario.
type Manifest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Tags        []string        `json:"tags,omitempty"`
	Status      string          `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	DurationMS  int64           `json:"duration_ms"`
	Error       string          `json:"error,omitempty"`
	Attachments []ManifestEntry `json:"attachments"`
}

// ManifestEntry is one attachment file.
type ManifestEntry struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	File      string `json:"file"`
	Size      int    `json:"size"`
}

// ArtifactStore persists scenario attachments under a root directory as
// <root>/<scenario-id>/ with a manifest.json.
type ArtifactStore struct {
	root string
}

func NewArtifactStore(root string) *ArtifactStore {
	return &ArtifactStore{root: root}
}

// Save writes every attachment and the manifest, returning the scenario
// directory.
func (s *ArtifactStore) Save(m Manifest, attachments []Attachment) (string, error) {
	dir := filepath.Join(s.root, m.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifacts directory %s: %w", dir, err)
	}

	m.Attachments = make([]ManifestEntry, 0, len(attachments))
	for i, a := range attachments {
		file := fmt.Sprintf("%02d-%s%s", i+1, slug(a.Name), extensionFor(a.MediaType))
		if err := os.WriteFile(filepath.Join(dir, file), a.Data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write attachment %q: %w", a.Name, err)
		}
		m.Attachments = append(m.Attachments, ManifestEntry{
			Name:      a.Name,
			MediaType: a.MediaType,
			File:      file,
			Size:      len(a.Data),
		})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return dir, nil
}

func extensionFor(mediaType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mediaType, ";", 2)[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "text/plain":
		return ".txt"
	case "application/json":
		return ".json"
	case "text/html":
		return ".html"
	default:
		return ".bin"
	}
}

// slug lowercases name and collapses anything but letters and digits to '-'.
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "attachment"
	}
	return out
}

// internal/scenario/world.go
// Package scenario owns the state that lives for exactly one Gherkin
// scenario: the World shared between its steps, the Before/After lifecycle
// and the artifacts captured when it fails.
package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Well-known World keys shared between step files.
const (
	KeyGeneratedEmail     = "generated_email"
	KeyDeletedMemberEmail = "deleted_member_email"
)

// Attachment is a blob attached to the scenario report.
type Attachment struct {
	Name      string
	MediaType string
	Data      []byte
}

// World is created per scenario and cleared after it. Steps share data
// through it instead of package globals.
type World struct {
	ID        string
	Name      string
	Tags      []string
	// Feature is the name of the feature file the scenario came from.
	Feature   string
	StartedAt time.Time

	mu          sync.RWMutex
	data        map[string]any
	attachments []Attachment
}

// NewWorld returns a World with a fresh ID.
func NewWorld(name string, tags []string) *World {
	return &World{
		ID:        uuid.NewString(),
		Name:      name,
		Tags:      append([]string(nil), tags...),
		StartedAt: time.Now(),
		data:      make(map[string]any),
	}
}

func (w *World) Set(key string, value any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data[key] = value
}

func (w *World) Get(key string) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.data[key]
	return v, ok
}

// GetString returns the value under key as a string, or an error when it is
// missing or of another type.
func (w *World) GetString(key string) (string, error) {
	v, ok := w.Get(key)
	if !ok {
		return "", fmt.Errorf("scenario data %q was never set", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("scenario data %q is %T, not string", key, v)
	}
	return s, nil
}

// HasTag reports whether the scenario carries tag ("@authenticated").
func (w *World) HasTag(tag string) bool {
	for _, t := range w.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (w *World) Attach(name, mediaType string, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attachments = append(w.attachments, Attachment{Name: name, MediaType: mediaType, Data: data})
}

func (w *World) Attachments() []Attachment {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Attachment(nil), w.attachments...)
}

// Clear drops data and attachments.
func (w *World) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = make(map[string]any)
	w.attachments = nil
}

type worldKey struct{}

func WithWorld(ctx context.Context, w *World) context.Context {
	return context.WithValue(ctx, worldKey{}, w)
}

func FromContext(ctx context.Context) (*World, bool) {
	w, ok := ctx.Value(worldKey{}).(*World)
	return w, ok && w != nil
}

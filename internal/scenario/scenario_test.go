// internal/scenario/scenario_test.go
package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/fakedriver"
	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/scripts"
	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
	"github.com/xkilldash9x/cyberrank-e2e/internal/reporting"
)

type recordingReporter struct {
	records []reporting.ScenarioRecord
	err     error
}

func (r *recordingReporter) Write(rec *reporting.ScenarioRecord) error {
	r.records = append(r.records, *rec)
	return r.err
}

func (r *recordingReporter) Close() error { return nil }

func TestWorld(t *testing.T) {
	w := NewWorld("Add member", []string{"@authenticated", "@team"})
	require.NotEmpty(t, w.ID)
	assert.True(t, w.HasTag("@authenticated"))
	assert.False(t, w.HasTag("@smoke"))

	_, err := w.GetString(KeyGeneratedEmail)
	assert.ErrorContains(t, err, "never set")

	w.Set(KeyGeneratedEmail, "testuser1@gmail.com")
	got, err := w.GetString(KeyGeneratedEmail)
	require.NoError(t, err)
	assert.Equal(t, "testuser1@gmail.com", got)

	w.Set("count", 3)
	_, err = w.GetString("count")
	assert.ErrorContains(t, err, "is int")

	w.Attach("note", "text/plain", []byte("x"))
	assert.Len(t, w.Attachments(), 1)

	w.Clear()
	_, ok := w.Get(KeyGeneratedEmail)
	assert.False(t, ok)
	assert.Empty(t, w.Attachments())

	ctx := WithWorld(context.Background(), w)
	from, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, w, from)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestWorldsAreIndependent(t *testing.T) {
	a := NewWorld("a", nil)
	b := NewWorld("b", nil)
	a.Set(KeyGeneratedEmail, "a@gmail.com")

	assert.NotEqual(t, a.ID, b.ID)
	_, ok := b.Get(KeyGeneratedEmail)
	assert.False(t, ok)
}

func TestCriticalConsoleEntries(t *testing.T) {
	entries := []locator.ConsoleEntry{
		{Level: "error", Message: "Failed to load resource: the server responded with a status of 404"},
		{Level: "error", Message: "GET https://cdn.example net::ERR_NAME_NOT_RESOLVED"},
		{Level: "error", Message: "Uncaught TypeError: x is undefined"},
		{Level: "warning", Message: "deprecated API"},
		{Level: "error", Message: "403 (Forbidden)"},
	}

	critical := CriticalConsoleEntries(entries)
	require.Len(t, critical, 1)
	assert.Equal(t, "Uncaught TypeError: x is undefined", critical[0].Message)
	assert.Equal(t, "ERROR: Uncaught TypeError: x is undefined", FormatConsoleEntries(critical))
	assert.Empty(t, CriticalConsoleEntries(nil))
}

func TestArtifactStoreSave(t *testing.T) {
	root := t.TempDir()
	store := NewArtifactStore(root)

	dir, err := store.Save(Manifest{ID: "abc", Name: "Delete member", Status: "failed"}, []Attachment{
		{Name: "Failure Screenshot", MediaType: "image/png", Data: []byte("png")},
		{Name: "???", MediaType: "application/octet-stream", Data: []byte{1, 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "abc"), dir)

	shot, err := os.ReadFile(filepath.Join(dir, "01-failure-screenshot.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(shot))
	assert.FileExists(t, filepath.Join(dir, "02-attachment.bin"))

	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(raw, &m))

	want := []ManifestEntry{
		{Name: "Failure Screenshot", MediaType: "image/png", File: "01-failure-screenshot.png", Size: 3},
		{Name: "???", MediaType: "application/octet-stream", File: "02-attachment.bin", Size: 2},
	}
	if diff := cmp.Diff(want, m.Attachments); diff != "" {
		t.Errorf("manifest attachments mismatch (-want +got):\n%s", diff)
	}
}

func TestHooksBefore(t *testing.T) {
	d := fakedriver.New()
	h := NewHooks(d, zaptest.NewLogger(t), "https://www.cyberrank.ai")

	ctx, w, err := h.Before(context.Background(), Meta{Name: "Login", Feature: "login", Tags: []string{"@smoke"}})
	require.NoError(t, err)

	from, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, w, from)
	assert.Equal(t, "login", w.Feature)

	assert.Equal(t, 1, d.CookieClears())
	assert.Equal(t, []string{scripts.ClearStorage}, d.Scripts())
	url, _ := d.CurrentURL(ctx)
	assert.Equal(t, "https://www.cyberrank.ai/", url)
}

func TestHooksBeforeToleratesStorageErrors(t *testing.T) {
	d := fakedriver.New()
	d.SetScriptResult(scripts.ClearStorage, errors.New("SecurityError: access denied"))
	h := NewHooks(d, zaptest.NewLogger(t), "https://www.cyberrank.ai")

	_, _, err := h.Before(context.Background(), Meta{Name: "Login"})
	assert.NoError(t, err)

	d.SetScriptResult(scripts.ClearStorage, locator.NewDriverError("evaluate", errors.New("target closed")))
	_, _, err = h.Before(context.Background(), Meta{Name: "Login"})
	assert.ErrorIs(t, err, locator.ErrDriver)
}

func TestHooksAfterFailureCapturesEvidence(t *testing.T) {
	d := fakedriver.New()
	d.AddConsole("error", "Failed to load resource: 404 (Not Found)")
	d.AddConsole("error", "Uncaught ReferenceError: grid is not defined")
	root := t.TempDir()
	rep := &recordingReporter{}
	h := NewHooks(d, zaptest.NewLogger(t), "", WithArtifactStore(NewArtifactStore(root)), WithReporter(rep))

	ctx, w, err := h.Before(context.Background(), Meta{Name: "Delete member", Feature: "team"})
	require.NoError(t, err)
	w.Set(KeyGeneratedEmail, "x@gmail.com")

	require.NoError(t, h.After(ctx, w, errors.New("element not found")))

	dir := filepath.Join(root, w.ID)
	assert.FileExists(t, filepath.Join(dir, "01-failure-screenshot.png"))
	logs, err := os.ReadFile(filepath.Join(dir, "02-critical-browser-errors.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Critical Browser Errors:\nERROR: Uncaught ReferenceError: grid is not defined", string(logs))

	require.Len(t, rep.records, 1)
	rec := rep.records[0]
	assert.Equal(t, reporting.StatusFailed, rec.Status)
	assert.Equal(t, "element not found", rec.Error)
	assert.Equal(t, "team", rec.Feature)
	assert.Equal(t, dir, rec.ArtifactsDir)

	_, ok := w.Get(KeyGeneratedEmail)
	assert.False(t, ok, "world is cleared after the scenario")
}

func TestHooksAfterPassWritesNoArtifacts(t *testing.T) {
	d := fakedriver.New()
	d.AddConsole("error", "Uncaught TypeError")
	root := t.TempDir()
	rep := &recordingReporter{}
	h := NewHooks(d, zaptest.NewLogger(t), "", WithArtifactStore(NewArtifactStore(root)), WithReporter(rep))

	ctx, w, err := h.Before(context.Background(), Meta{Name: "Login"})
	require.NoError(t, err)
	require.NoError(t, h.After(ctx, w, nil))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.Len(t, rep.records, 1)
	assert.Equal(t, reporting.StatusPassed, rep.records[0].Status)
	assert.Empty(t, rep.records[0].ArtifactsDir)
}

func TestHooksAfterScreenshotFailureDoesNotMaskResult(t *testing.T) {
	d := fakedriver.New()
	d.SetScreenshot(nil, errors.New("target closed"))
	rep := &recordingReporter{err: errors.New("disk full")}
	h := NewHooks(d, zaptest.NewLogger(t), "", WithReporter(rep))

	ctx, w, err := h.Before(context.Background(), Meta{Name: "Login"})
	require.NoError(t, err)

	err = h.After(ctx, w, errors.New("boom"))
	assert.ErrorContains(t, err, "disk full")
	require.Len(t, rep.records, 1)
	assert.Equal(t, "boom", rep.records[0].Error)
}

func TestHooksAfterRunsOnCancelledContext(t *testing.T) {
	d := fakedriver.New()
	root := t.TempDir()
	h := NewHooks(d, zaptest.NewLogger(t), "", WithArtifactStore(NewArtifactStore(root)))

	ctx, w, err := h.Before(context.Background(), Meta{Name: "Login"})
	require.NoError(t, err)
	cctx, cancel := context.WithCancel(ctx)
	cancel()

	require.NoError(t, h.After(cctx, w, context.Canceled))
	assert.FileExists(t, filepath.Join(root, w.ID, "01-failure-screenshot.png"))
}

func TestHooksAfterRequiresWorld(t *testing.T) {
	h := NewHooks(fakedriver.New(), nil, "")
	assert.Error(t, h.After(context.Background(), nil, nil))
}

// internal/scenario/hooks.go
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/scripts"
	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
	"github.com/xkilldash9x/cyberrank-e2e/internal/reporting"
)

const defaultTeardownTimeout = 30 * time.Second

// Meta identifies the scenario a World is created for.
type Meta struct {
	Name    string
	Feature string
	Tags    []string
}

// Hooks implements the per-scenario lifecycle: a clean browser state before
// every scenario, failure capture and artifact persistence after it.
type Hooks struct {
	driver   locator.Driver
	logger   *zap.Logger
	baseURL  string
	store    *ArtifactStore
	reporter reporting.Reporter
	teardown time.Duration
}

// HookOption configures Hooks.
type HookOption func(*Hooks)

// WithArtifactStore persists attachments of every scenario that has any.
func WithArtifactStore(s *ArtifactStore) HookOption {
	return func(h *Hooks) { h.store = s }
}

// WithReporter records every finished scenario.
func WithReporter(r reporting.Reporter) HookOption {
	return func(h *Hooks) { h.reporter = r }
}

// WithTeardownTimeout bounds the work done in After.
func WithTeardownTimeout(d time.Duration) HookOption {
	return func(h *Hooks) {
		if d > 0 {
			h.teardown = d
		}
	}
}

func NewHooks(d locator.Driver, logger *zap.Logger, baseURL string, opts ...HookOption) *Hooks {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hooks{
		driver:   d,
		logger:   logger.Named("hooks"),
		baseURL:  baseURL,
		teardown: defaultTeardownTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Before resets the browser (cookies, then local and session storage),
// opens the base URL and returns a context carrying the new World.
func (h *Hooks) Before(ctx context.Context, meta Meta) (context.Context, *World, error) {
	w := NewWorld(meta.Name, meta.Tags)
	w.Feature = meta.Feature
	ctx = WithWorld(ctx, w)
	log := h.logger.With(zap.String("scenario", w.Name), zap.String("scenario_id", w.ID))
	log.Info("Starting scenario.", zap.Strings("tags", w.Tags))

	if err := h.driver.ClearCookies(ctx); err != nil {
		return ctx, w, fmt.Errorf("failed to clear cookies: %w", err)
	}
	var cleared bool
	if err := h.driver.ExecuteScript(ctx, scripts.ClearStorage, &cleared); err != nil {
		// Storage can be unavailable on opaque origins; the navigation below
		// still gives the scenario a fresh page.
		if locator.IsFatal(err) {
			return ctx, w, fmt.Errorf("failed to clear storage: %w", err)
		}
		log.Debug("Storage not cleared.", zap.Error(err))
	}

	if h.baseURL != "" {
		if err := h.driver.Navigate(ctx, h.baseURL+"/"); err != nil {
			return ctx, w, fmt.Errorf("failed to open %s: %w", h.baseURL, err)
		}
	}
	return ctx, w, nil
}

// After closes out the scenario. When scenarioErr is non-nil a screenshot and
// the critical console entries are attached. Attachments are persisted and the
// outcome reported before the World is cleared. The work runs on a detached
// context so a cancelled run still leaves its evidence behind.
func (h *Hooks) After(ctx context.Context, w *World, scenarioErr error) error {
	if w == nil {
		return errors.New("after hook called without a scenario world")
	}
	duration := time.Since(w.StartedAt)
	log := h.logger.With(zap.String("scenario", w.Name), zap.String("scenario_id", w.ID))

	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.teardown)
	defer cancel()

	status := reporting.StatusPassed
	if scenarioErr != nil {
		status = reporting.StatusFailed
		log.Error("Scenario failed.", zap.Duration("duration", duration), zap.Error(scenarioErr))
		h.captureFailure(tctx, w, log)
	} else {
		log.Info("Scenario passed.", zap.Duration("duration", duration))
	}

	var errs []error
	var dir string
	if atts := w.Attachments(); h.store != nil && len(atts) > 0 {
		m := Manifest{
			ID:         w.ID,
			Name:       w.Name,
			Tags:       w.Tags,
			Status:     status,
			StartedAt:  w.StartedAt,
			DurationMS: duration.Milliseconds(),
		}
		if scenarioErr != nil {
			m.Error = scenarioErr.Error()
		}
		var err error
		if dir, err = h.store.Save(m, atts); err != nil {
			errs = append(errs, err)
		} else {
			log.Info("Saved scenario artifacts.", zap.String("dir", dir), zap.Int("attachments", len(atts)))
		}
	}

	if h.reporter != nil {
		rec := &reporting.ScenarioRecord{
			ID:           w.ID,
			Name:         w.Name,
			Feature:      w.Feature,
			Tags:         w.Tags,
			Status:       status,
			StartedAt:    w.StartedAt,
			Duration:     duration,
			ArtifactsDir: dir,
		}
		if scenarioErr != nil {
			rec.Error = scenarioErr.Error()
		}
		if err := h.reporter.Write(rec); err != nil {
			errs = append(errs, fmt.Errorf("failed to report scenario: %w", err))
		}
	}

	w.Clear()
	return errors.Join(errs...)
}

// captureFailure attaches what it can. A failed capture is logged and never
// masks the scenario error.
func (h *Hooks) captureFailure(ctx context.Context, w *World, log *zap.Logger) {
	if shot, err := h.driver.Screenshot(ctx); err != nil {
		log.Warn("Could not capture failure screenshot.", zap.Error(err))
	} else if len(shot) > 0 {
		w.Attach("failure screenshot", "image/png", shot)
	}

	entries, err := h.driver.ConsoleLogs(ctx)
	if err != nil {
		log.Warn("Could not read browser console.", zap.Error(err))
		return
	}
	if critical := CriticalConsoleEntries(entries); len(critical) > 0 {
		w.Attach("critical browser errors", "text/plain",
			[]byte("Critical Browser Errors:\n"+FormatConsoleEntries(critical)))
		log.Warn("Critical browser console errors.", zap.Int("count", len(critical)))
	}
}

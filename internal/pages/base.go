// internal/pages/base.go
// Package pages holds the page objects of the CyberRank web application. Each
// page object composes the resilient locator core over a locator.Driver;
// none of them talks to a browser library directly.
package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/scripts"
	"github.com/xkilldash9x/cyberrank-e2e/internal/config"
	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

// Base carries what every page object needs: the driver, the application
// base URL and the named timeout ladder.
type Base struct {
	d       locator.Driver
	logger  *zap.Logger
	baseURL string
	t       config.TimeoutConfig
}

func NewBase(d locator.Driver, logger *zap.Logger, baseURL string, timeouts config.TimeoutConfig) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{
		d:       d,
		logger:  logger.Named("pages"),
		baseURL: strings.TrimRight(baseURL, "/"),
		t:       timeouts,
	}
}

func (b *Base) Driver() locator.Driver          { return b.d }
func (b *Base) Timeouts() config.TimeoutConfig { return b.t }
func (b *Base) BaseURL() string                { return b.baseURL }

// Wait builds the WaitSpec for timeout, shrinking the poll interval for
// timeouts shorter than two intervals.
func (b *Base) Wait(timeout time.Duration, msg string) locator.WaitSpec {
	interval := b.t.PollInterval
	if interval <= 0 || interval*2 > timeout {
		interval = timeout / 2
	}
	return locator.WaitSpec{Timeout: timeout, Interval: interval, Message: msg}
}

// retryWait is the WaitSpec for RetryAction: timeout bounds one attempt and
// the configured retry delay separates attempts.
func (b *Base) retryWait(timeout time.Duration, msg string) locator.WaitSpec {
	delay := b.t.RetryDelay
	if delay <= 0 || delay >= timeout {
		delay = timeout / 2
	}
	return locator.WaitSpec{Timeout: timeout, Interval: delay, Message: msg}
}

func (b *Base) attempts() int {
	if b.t.RetryAttempts < 1 {
		return 1
	}
	return b.t.RetryAttempts
}

func (b *Base) opt() locator.Option { return locator.WithLogger(b.logger) }

// LogOption routes locator diagnostics to the page logger.
func (b *Base) LogOption() locator.Option { return b.opt() }

// -- Navigation --

// Open navigates to path under the base URL and waits for the document to
// finish loading.
func (b *Base) Open(ctx context.Context, path string) error {
	url := b.baseURL + path
	b.logger.Debug("Opening page.", zap.String("url", url))
	if err := b.d.Navigate(ctx, url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return b.WaitForPageLoad(ctx)
}

// WaitForPageLoad waits for document.readyState to become "complete".
func (b *Base) WaitForPageLoad(ctx context.Context) error {
	return locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		var state string
		if err := b.d.ExecuteScript(ctx, scripts.ReadyState, &state); err != nil {
			return false, err
		}
		return state == "complete", nil
	}, b.Wait(b.t.Long, "page load"), b.opt())
}

func (b *Base) CurrentURL(ctx context.Context) (string, error) {
	return b.d.CurrentURL(ctx)
}

// URLContains reports whether the current URL contains any of parts.
func (b *Base) URLContains(ctx context.Context, parts ...string) (bool, error) {
	u, err := b.d.CurrentURL(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range parts {
		if strings.Contains(u, p) {
			return true, nil
		}
	}
	return false, nil
}

// WaitForURLContains waits until the current URL contains part.
func (b *Base) WaitForURLContains(ctx context.Context, part string, timeout time.Duration) error {
	return locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		return b.URLContains(ctx, part)
	}, b.Wait(timeout, fmt.Sprintf("url to contain %q", part)), b.opt())
}

// Title returns document.title.
func (b *Base) Title(ctx context.Context) (string, error) {
	var title string
	if err := b.d.ExecuteScript(ctx, scripts.Title, &title); err != nil {
		return "", err
	}
	return title, nil
}

// -- Elements --

// Locate resolves the first visible candidate.
func (b *Base) Locate(ctx context.Context, timeout time.Duration, msg string, candidates ...locator.Selector) (*locator.Match, error) {
	return locator.LocateWithFallback(ctx, b.d, candidates, b.Wait(timeout, msg), b.opt())
}

// WaitForDisplayed waits until one of candidates is visible.
func (b *Base) WaitForDisplayed(ctx context.Context, timeout time.Duration, msg string, candidates ...locator.Selector) error {
	_, err := b.Locate(ctx, timeout, msg, candidates...)
	return err
}

// IsDisplayed checks candidates once without waiting.
func (b *Base) IsDisplayed(ctx context.Context, candidates ...locator.Selector) (bool, error) {
	res, err := locator.Probe(ctx, b.d, candidates)
	if err != nil {
		return false, err
	}
	return res.Found, nil
}

// ClickFirst clicks the first visible candidate. A click that hits a stale
// or not yet interactable element is re-located and retried, with the
// configured delay between attempts. Any other failure ends it at once.
func (b *Base) ClickFirst(ctx context.Context, timeout time.Duration, msg string, candidates ...locator.Selector) error {
	var final error
	// An attempt may spend the whole locate timeout before it clicks.
	spec := b.retryWait(timeout+b.t.Short, msg)
	_, err := locator.Retry(ctx, b.attempts(), spec, func(ctx context.Context) error {
		m, err := b.Locate(ctx, timeout, msg, candidates...)
		if err != nil {
			final = err
			return nil
		}
		if err := b.d.Click(ctx, m.Element); err != nil {
			err = fmt.Errorf("failed to click %s: %w", msg, err)
			if locator.IsTransient(err) {
				b.logger.Debug("Click hit a transient state, relocating.", zap.String("target", msg), zap.Error(err))
				return err
			}
			final = err
			return nil
		}
		b.logger.Debug("Clicked.", zap.String("target", msg), zap.String("selector", m.Selector.String()))
		return nil
	}, b.opt())
	if err != nil {
		return err
	}
	return final
}

// TextOf returns the text of the first visible candidate.
func (b *Base) TextOf(ctx context.Context, timeout time.Duration, msg string, candidates ...locator.Selector) (string, error) {
	m, err := b.Locate(ctx, timeout, msg, candidates...)
	if err != nil {
		return "", err
	}
	text, err := b.d.Text(ctx, m.Element)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", msg, err)
	}
	return strings.TrimSpace(text), nil
}

// SetValue replaces the value of the first visible candidate.
func (b *Base) SetValue(ctx context.Context, timeout time.Duration, msg, value string, candidates ...locator.Selector) error {
	m, err := b.Locate(ctx, timeout, msg, candidates...)
	if err != nil {
		return err
	}
	if err := b.d.SetText(ctx, m.Element, value); err != nil {
		return fmt.Errorf("failed to type into %s: %w", msg, err)
	}
	return nil
}

// WaitForCount waits until at least atLeast elements under sel satisfy pred and
// returns them.
func (b *Base) WaitForCount(ctx context.Context, sel locator.Selector, pred locator.Predicate, atLeast int, timeout time.Duration, msg string) ([]locator.Snapshot, error) {
	var snaps []locator.Snapshot
	err := locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		found, err := locator.FindAllMatching(ctx, b.d, sel, pred)
		if err != nil {
			return false, err
		}
		snaps = found
		return len(found) >= atLeast, nil
	}, b.Wait(timeout, msg), b.opt())
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

// WaitGone waits until none of candidates is visible.
func (b *Base) WaitGone(ctx context.Context, timeout time.Duration, msg string, candidates ...locator.Selector) error {
	return locator.PollUntil(ctx, func(ctx context.Context) (bool, error) {
		res, err := locator.Probe(ctx, b.d, candidates)
		if err != nil {
			return false, err
		}
		return !res.Found, nil
	}, b.Wait(timeout, msg), b.opt())
}

// Pause sleeps for d, honoring ctx.
func (b *Base) Pause(ctx context.Context, d time.Duration) error {
	return locator.Sleep(ctx, d)
}

// Screenshot captures the viewport as PNG.
func (b *Base) Screenshot(ctx context.Context) ([]byte, error) {
	return b.d.Screenshot(ctx)
}

// internal/browser/cdp/manager.go
package cdp

import (
	"context"
	"fmt"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/config"
)

const defaultLaunchTimeout = 30 * time.Second

// Manager owns the Chrome process. Sessions (tabs) are derived from its
// allocator context.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc

	// wg tracks open sessions for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches the browser and verifies that it responds.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}
	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...", zap.Bool("headless", m.cfg.Headless))

	// The allocator must outlive the caller's startup context.
	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(context.WithoutCancel(ctx), AllocatorOptions(m.cfg)...)

	var browserOpts []chromedp.ContextOption
	if m.cfg.Debug {
		browserOpts = append(browserOpts, chromedp.WithDebugf(m.logger.Sugar().Debugf))
	}
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocatorCtx, browserOpts...)

	timeout := m.cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	if err := startWithin(ctx, m.browserCtx, timeout); err != nil {
		m.browserCancel()
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start: %w", err)
	}

	checkCtx, checkCancel := context.WithTimeout(m.browserCtx, timeout)
	defer checkCancel()
	if err := chromedp.Run(checkCtx, chromedp.Navigate("about:blank")); err != nil {
		m.browserCancel()
		m.allocatorCancel()
		return fmt.Errorf("browser failed to respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// AllocatorOptions assembles the exec allocator flags for cfg.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+12)
	for _, opt := range chromedp.DefaultExecAllocatorOptions {
		opts = append(opts, opt)
	}

	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", cfg.IgnoreTLSErrors),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(name, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	// Containers (CI) need these on Linux.
	if goruntime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	return opts
}

// NewSession opens a new tab and returns a Driver bound to it.
func (m *Manager) NewSession(ctx context.Context) (*Driver, error) {
	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)

	d := &Driver{
		ctx:       tabCtx,
		cancel:    tabCancel,
		logger:    m.logger.Named("cdp_driver"),
		opTimeout: defaultOpTimeout,
		console:   &consoleBuffer{},
	}
	chromedp.ListenTarget(tabCtx, d.console.handle)

	if err := startWithin(ctx, tabCtx, defaultOpTimeout); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open browser tab: %w", err)
	}
	enableCtx, cancel := CombineContext(tabCtx, ctx)
	defer cancel()
	if err := chromedp.Run(enableCtx, runtime.Enable(), log.Enable()); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to enable console capture: %w", err)
	}

	m.wg.Add(1)
	d.onClose = m.wg.Done
	m.logger.Debug("New browser session created.")
	return d, nil
}

// Shutdown waits for open sessions until ctx is done and then terminates the
// browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for active sessions to complete...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions have completed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	if m.browserCancel != nil {
		m.browserCancel()
	}
	if m.allocatorCancel != nil {
		m.logger.Info("Shutting down main browser process...")
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
	return nil
}

// startWithin performs the first Run on a chromedp context. That Run must use
// the chromedp context itself, because the browser and target lifetimes bind
// to it, so the deadline is enforced from outside.
func startWithin(ctx, chromeCtx context.Context, timeout time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(chromeCtx) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-errc:
		return err
	case <-timer.C:
		return fmt.Errorf("no response within %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

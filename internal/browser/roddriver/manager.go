// internal/browser/roddriver/manager.go
package roddriver

import (
	"context"
	"fmt"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/config"
)

const defaultLaunchTimeout = 30 * time.Second

// Manager owns a launched Chrome process driven through rod.
type Manager struct {
	logger   *zap.Logger
	cfg      config.BrowserConfig
	launcher *launcher.Launcher
	browser  *rod.Browser

	// Pages live under rootCtx so a caller's startup context does not close
	// them.
	rootCtx    context.Context
	rootCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewManager launches the browser and connects to it.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("rod_manager"),
		cfg:    cfg,
	}
	m.rootCtx, m.rootCancel = context.WithCancel(context.WithoutCancel(ctx))

	timeout := cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	launchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m.logger.Info("Launching browser via rod...", zap.Bool("headless", cfg.Headless))
	m.launcher = ConfigureLauncher(launcher.New().Context(m.rootCtx), cfg)
	controlURL, err := launchWithin(launchCtx, m.launcher)
	if err != nil {
		m.launcher.Kill()
		m.rootCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	m.browser = rod.New().ControlURL(controlURL).Context(m.rootCtx)
	if err := m.browser.Connect(); err != nil {
		m.launcher.Kill()
		m.rootCancel()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	if cfg.IgnoreTLSErrors {
		if err := m.browser.IgnoreCertErrors(true); err != nil {
			m.logger.Warn("Could not disable certificate checks.", zap.Error(err))
		}
	}

	m.logger.Info("Browser launched successfully.", zap.String("control_url", controlURL))
	return m, nil
}

func launchWithin(ctx context.Context, l *launcher.Launcher) (string, error) {
	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	go func() {
		u, err := l.Launch()
		done <- result{u, err}
	}()
	select {
	case r := <-done:
		return r.url, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ConfigureLauncher applies cfg to l and returns it.
func ConfigureLauncher(l *launcher.Launcher, cfg config.BrowserConfig) *launcher.Launcher {
	l = l.Headless(cfg.Headless).Set(flags.Flag("disable-extensions"))
	if cfg.ExecPath != "" {
		l = l.Bin(cfg.ExecPath)
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		l = l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.IgnoreTLSErrors {
		l = l.Set(flags.Flag("ignore-certificate-errors"))
	}
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			l = l.Set(flags.Flag(name), parts[1])
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	if goruntime.GOOS == "linux" {
		l = l.NoSandbox(true).Set(flags.Flag("disable-dev-shm-usage"))
	}
	return l
}

// NewSession opens a blank page and returns a Driver bound to it.
func (m *Manager) NewSession(ctx context.Context) (*Driver, error) {
	pageCtx, pageCancel := context.WithCancel(m.rootCtx)

	openCtx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()
	page, err := m.browser.Context(openCtx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		pageCancel()
		return nil, fmt.Errorf("failed to open browser page: %w", err)
	}
	page = page.Context(pageCtx)

	if m.cfg.WindowWidth > 0 && m.cfg.WindowHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             m.cfg.WindowWidth,
			Height:            m.cfg.WindowHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			m.logger.Warn("Could not set viewport.", zap.Error(err))
		}
	}

	d := &Driver{
		page:      page,
		ctx:       pageCtx,
		cancel:    pageCancel,
		logger:    m.logger.Named("rod_driver"),
		opTimeout: defaultOpTimeout,
		console:   &consoleBuffer{},
	}
	if err := (proto.LogEnable{}).Call(page); err != nil {
		m.logger.Warn("Could not enable the log domain.", zap.Error(err))
	}
	// EachEvent enables the runtime domain itself and stops when pageCtx ends.
	wait := page.EachEvent(d.console.onConsole, d.console.onLog, d.console.onException)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		wait()
	}()

	m.wg.Add(1)
	d.onClose = m.wg.Done
	m.logger.Debug("New browser session created.")
	return d, nil
}

// Shutdown waits for open sessions until ctx is done, then closes the browser
// and kills the process.
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

	var err error
	if m.browser != nil {
		if cerr := m.browser.Close(); cerr != nil {
			err = fmt.Errorf("closing browser: %w", cerr)
		}
	}
	m.rootCancel()
	if m.launcher != nil {
		m.launcher.Kill()
		m.launcher.Cleanup()
	}
	return err
}

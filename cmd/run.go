// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/cdp"
	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/roddriver"
	"github.com/xkilldash9x/cyberrank-e2e/internal/config"
	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
	"github.com/xkilldash9x/cyberrank-e2e/internal/observability"
	"github.com/xkilldash9x/cyberrank-e2e/internal/reporting"
	"github.com/xkilldash9x/cyberrank-e2e/internal/scenario"
	"github.com/xkilldash9x/cyberrank-e2e/internal/steps"
)

// godog exit statuses.
const (
	statusPassed        = 0
	statusFailed        = 1
	statusInvalidOption = 2
)

var errScenariosFailed = errors.New("one or more scenarios failed")

// shutdownTimeout bounds browser teardown after the suite finishes or is
// interrupted.
var shutdownTimeout = 30 * time.Second

// openBrowser launches the configured backend and opens one session.
// Replaced in tests.
var openBrowser = launchBrowser

type runOptions struct {
	tags         string
	format       string
	baseURL      string
	headless     bool
	driver       string
	reportPath   string
	reportFormat string
	artifacts    string
	listSteps    bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [feature paths...]",
		Short: "Run the Gherkin feature suite against the application.",
		Long: `Runs the feature files under the configured paths (or the paths given as
arguments) in a single browser session. Scenarios run sequentially. Failed
scenarios leave a screenshot and the critical console errors under the
artifacts directory.`,
		Example: `  cyberrank-e2e run
  cyberrank-e2e run --tags "@authenticated && ~@slow" features/team.feature
  cyberrank-e2e run --driver rod --headless=false --report report.xml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg, opts, args); err != nil {
				return err
			}
			return runSuite(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.tags, "tags", "t", "", `tag expression selecting scenarios, e.g. "@smoke && ~@wip"`)
	f.StringVarP(&opts.format, "format", "f", "", "godog output format (pretty, progress, cucumber, junit)")
	f.StringVar(&opts.baseURL, "base-url", "", "application root URL")
	f.BoolVar(&opts.headless, "headless", true, "run the browser without a window")
	f.StringVar(&opts.driver, "driver", "", "browser backend (chromedp or rod)")
	f.StringVarP(&opts.reportPath, "report", "o", "", "write a scenario report to this file")
	f.StringVar(&opts.reportFormat, "report-format", "junit", "scenario report format (junit, json, text)")
	f.StringVar(&opts.artifacts, "artifacts", "", "directory for failure artifacts")
	f.BoolVar(&opts.listSteps, "list-steps", false, "print the step definitions and exit")
	return cmd
}

// applyRunFlags layers explicitly set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, opts runOptions, args []string) error {
	f := cmd.Flags()
	if f.Changed("tags") {
		cfg.SetSuiteTags(opts.tags)
	}
	if f.Changed("format") {
		cfg.SetSuiteFormat(opts.format)
	}
	if f.Changed("base-url") {
		cfg.SetSuiteBaseURL(opts.baseURL)
	}
	if f.Changed("headless") {
		cfg.SetBrowserHeadless(opts.headless)
	}
	if f.Changed("driver") {
		cfg.SetBrowserDriver(opts.driver)
	}
	if f.Changed("artifacts") {
		dir, err := homedir.Expand(opts.artifacts)
		if err != nil {
			return fmt.Errorf("invalid artifacts directory: %w", err)
		}
		cfg.SuiteCfg.ArtifactsDir = dir
	}
	if len(args) > 0 {
		cfg.SetSuitePaths(args)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func runSuite(ctx context.Context, cfg *config.Config, opts runOptions, out io.Writer) error {
	logger := observability.Component("runner")
	suiteCfg := cfg.Suite()

	if opts.listSteps {
		runGodog(ctx, suiteCfg, out, true, func(sc *godog.ScenarioContext) {
			steps.Register(sc, steps.Deps{Logger: logger, BaseURL: suiteCfg.BaseURL, Timeouts: cfg.Timeouts()})
		})
		return nil
	}

	var sinks []reporting.Reporter
	if opts.reportPath != "" {
		r, err := reporting.New(opts.reportFormat, opts.reportPath)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		sinks = append(sinks, r)
	}
	if cfg.Database().URL != "" {
		s, cleanup, err := historyStore.Create(ctx, cfg)
		if err != nil {
			for _, r := range sinks {
				_ = r.Close()
			}
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		defer cleanup()
		runID := uuid.NewString()
		logger.Info("Recording run history.", zap.String("run_id", runID))
		sinks = append(sinks, s.NewReporter(ctx, runID, cfg.Timeouts().Long))
	}
	var rep reporting.Reporter
	if len(sinks) > 0 {
		rep = reporting.Multi(sinks...)
	}

	driver, release, err := openBrowser(ctx, logger, cfg.Browser())
	if err != nil {
		if rep != nil {
			_ = rep.Close()
		}
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := release(sctx); err != nil {
			logger.Warn("Browser shutdown reported an error.", zap.Error(err))
		}
	}()

	hookOpts := []scenario.HookOption{scenario.WithTeardownTimeout(cfg.Timeouts().Long)}
	if suiteCfg.ArtifactsDir != "" {
		hookOpts = append(hookOpts, scenario.WithArtifactStore(scenario.NewArtifactStore(suiteCfg.ArtifactsDir)))
	}
	if rep != nil {
		hookOpts = append(hookOpts, scenario.WithReporter(rep))
	}
	hooks := scenario.NewHooks(driver, logger, suiteCfg.BaseURL, hookOpts...)

	logger.Info("Running feature suite.",
		zap.Strings("paths", suiteCfg.Paths),
		zap.String("tags", suiteCfg.Tags),
		zap.String("driver", cfg.Browser().Driver),
		zap.String("base_url", suiteCfg.BaseURL))

	status := runGodog(ctx, suiteCfg, out, false, func(sc *godog.ScenarioContext) {
		steps.Register(sc, steps.Deps{
			Driver:      driver,
			Logger:      logger,
			BaseURL:     suiteCfg.BaseURL,
			Timeouts:    cfg.Timeouts(),
			Credentials: cfg.Credentials(),
			Hooks:       hooks,
		})
	})

	if rep != nil {
		if err := rep.Close(); err != nil {
			logger.Error("Failed to finalize the scenario report.", zap.Error(err))
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch status {
	case statusPassed:
		logger.Info("Feature suite passed.")
		return nil
	case statusFailed:
		return errScenariosFailed
	case statusInvalidOption:
		return errors.New("the feature suite could not start; check paths, tags and format")
	default:
		return fmt.Errorf("feature suite exited with status %d", status)
	}
}

func runGodog(ctx context.Context, s config.SuiteConfig, out io.Writer, listSteps bool, init func(*godog.ScenarioContext)) int {
	suite := godog.TestSuite{
		Name:                "cyberrank-e2e",
		ScenarioInitializer: init,
		Options: &godog.Options{
			Paths:               s.Paths,
			Tags:                s.Tags,
			Format:              s.Format,
			Strict:              s.Strict,
			Concurrency:         s.Concurrency,
			Output:              out,
			DefaultContext:      ctx,
			ShowStepDefinitions: listSteps,
		},
	}
	return suite.Run()
}

// launchBrowser starts the backend named by cfg.Driver. The returned function
// closes the session and terminates the browser.
func launchBrowser(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (locator.Driver, func(context.Context) error, error) {
	switch cfg.Driver {
	case config.DriverRod:
		m, err := roddriver.NewManager(ctx, logger, cfg)
		if err != nil {
			return nil, nil, err
		}
		d, err := m.NewSession(ctx)
		if err != nil {
			_ = m.Shutdown(context.WithoutCancel(ctx))
			return nil, nil, err
		}
		return d, func(ctx context.Context) error {
			return errors.Join(d.Close(), m.Shutdown(ctx))
		}, nil
	default:
		m, err := cdp.NewManager(ctx, logger, cfg)
		if err != nil {
			return nil, nil, err
		}
		d, err := m.NewSession(ctx)
		if err != nil {
			_ = m.Shutdown(context.WithoutCancel(ctx))
			return nil, nil, err
		}
		return d, func(ctx context.Context) error {
			return errors.Join(d.Close(), m.Shutdown(ctx))
		}, nil
	}
}

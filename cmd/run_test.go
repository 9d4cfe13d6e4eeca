// File: cmd/run_test.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/browser/fakedriver"
	"github.com/xkilldash9x/cyberrank-e2e/internal/config"
	"github.com/xkilldash9x/cyberrank-e2e/internal/locator"
)

const homepageFeature = `Feature: Homepage

  Scenario: Landing page renders
    Given I am on the CyberRank homepage
    Then the "hero section" should be visible
`

const brokenFeature = `Feature: Homepage

  Scenario: Login link is missing
    Given I am on the CyberRank homepage
    Then the "login button" should be visible
`

// suiteFixture writes a config file and a features directory for one run.
func suiteFixture(t *testing.T, feature string) (configFile, artifacts string) {
	t.Helper()
	dir := t.TempDir()
	features := filepath.Join(dir, "features")
	require.NoError(t, os.MkdirAll(features, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(features, "homepage.feature"), []byte(feature), 0o644))
	artifacts = filepath.Join(dir, "artifacts")

	configFile = createTempConfig(t, fmt.Sprintf(`
logger:
  level: fatal
suite:
  base_url: https://www.cyberrank.ai
  paths: [%q]
  format: progress
  artifacts_dir: %q
timeouts:
  very_short: 20ms
  short: 60ms
  medium: 120ms
  medium_long: 150ms
  long: 200ms
  very_long: 300ms
  extra_long: 400ms
  poll_interval: 10ms
  retry_attempts: 3
  retry_delay: 10ms
`, features, artifacts))
	return configFile, artifacts
}

// useFakeBrowser swaps the browser launcher for the scripted driver.
func useFakeBrowser(t *testing.T, d *fakedriver.Driver) {
	t.Helper()
	released := false
	openBrowser = func(context.Context, *zap.Logger, config.BrowserConfig) (locator.Driver, func(context.Context) error, error) {
		return d, func(context.Context) error {
			released = true
			return nil
		}, nil
	}
	t.Cleanup(func() { assert.True(t, released, "browser must be released") })
}

func homepage() *fakedriver.Driver {
	return fakedriver.New().Add("div*=Global Standard", fakedriver.Node{})
}

func TestRunCmd_PassingSuiteWritesReport(t *testing.T) {
	resetForTest(t)
	configFile, artifacts := suiteFixture(t, homepageFeature)
	d := homepage()
	useFakeBrowser(t, d)
	report := filepath.Join(t.TempDir(), "report.xml")

	_, err := executeCommand(t, "--config", configFile, "run", "--report", report)

	require.NoError(t, err)
	assert.Equal(t, 1, d.CookieClears())
	url, _ := d.CurrentURL(context.Background())
	assert.Equal(t, "https://www.cyberrank.ai/", url)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<testsuites name="cyberrank-e2e" tests="1" failures="0"`)
	assert.Contains(t, string(data), `name="Landing page renders"`)
	assert.NoDirExists(t, artifacts)
}

func TestRunCmd_FailingScenario(t *testing.T) {
	resetForTest(t)
	configFile, artifacts := suiteFixture(t, brokenFeature)
	d := homepage()
	d.AddConsole("SEVERE", "Uncaught ReferenceError: hero is not defined")
	useFakeBrowser(t, d)
	report := filepath.Join(t.TempDir(), "report.jsonl")

	_, err := executeCommand(t, "--config", configFile, "run", "--report", report, "--report-format", "json")

	require.ErrorIs(t, err, errScenariosFailed)
	entries, err := os.ReadDir(artifacts)
	require.NoError(t, err)
	require.Len(t, entries, 1, "one directory per failed scenario")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"failed"`)
	assert.Contains(t, string(data), `"name":"Login link is missing"`)
}

func TestRunCmd_FlagsOverrideConfig(t *testing.T) {
	resetForTest(t)
	configFile, _ := suiteFixture(t, homepageFeature)
	var seen config.BrowserConfig
	openBrowser = func(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (locator.Driver, func(context.Context) error, error) {
		seen = cfg
		return nil, nil, errors.New("no browser here")
	}

	_, err := executeCommand(t, "--config", configFile, "run", "--driver", "ROD", "--headless=false")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start browser")
	assert.Equal(t, config.DriverRod, seen.Driver)
	assert.False(t, seen.Headless)
}

func TestRunCmd_InvalidDriverFlag(t *testing.T) {
	resetForTest(t)
	configFile, _ := suiteFixture(t, homepageFeature)

	_, err := executeCommand(t, "--config", configFile, "run", "--driver", "webkit")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser.driver")
}

func TestRunCmd_UnsupportedReportFormat(t *testing.T) {
	resetForTest(t)
	configFile, _ := suiteFixture(t, homepageFeature)
	openBrowser = func(context.Context, *zap.Logger, config.BrowserConfig) (locator.Driver, func(context.Context) error, error) {
		t.Fatal("browser must not start when the report cannot be created")
		return nil, nil, nil
	}

	_, err := executeCommand(t, "--config", configFile, "run",
		"--report", filepath.Join(t.TempDir(), "r.html"), "--report-format", "html")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: html")
}

func TestRunCmd_ListSteps(t *testing.T) {
	resetForTest(t)
	configFile, _ := suiteFixture(t, homepageFeature)
	openBrowser = func(context.Context, *zap.Logger, config.BrowserConfig) (locator.Driver, func(context.Context) error, error) {
		t.Fatal("listing steps must not start a browser")
		return nil, nil, nil
	}

	out, err := executeCommand(t, "--config", configFile, "run", "--list-steps")

	require.NoError(t, err)
	assert.Contains(t, out, "I click the send icon")
	assert.Contains(t, out, "I am on the CyberRank login page")
}

// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cyberrank-e2e/internal/config"
	"github.com/xkilldash9x/cyberrank-e2e/internal/observability"
)

// resetForTest provides the single source of truth for resetting test state.
func resetForTest(t *testing.T) {
	t.Helper()

	cfgFile = ""
	openBrowser = launchBrowser
	historyStore = defaultStoreProvider{}
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})

	t.Cleanup(func() {
		cfgFile = ""
		openBrowser = launchBrowser
		historyStore = defaultStoreProvider{}
	})
}

// executeCommand runs a fresh command tree and captures its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, _ := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// executeCommandNoPreRun is for testing argument and flag validation without
// triggering the config validation in PersistentPreRunE.
func executeCommandNoPreRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, _ := newRootCmd()
	root.PersistentPreRunE = nil
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// createTempConfig helper
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "test-config-*.yaml")
	require.NoError(t, err)
	_, err = tmpfile.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

// File: cmd/history_test.go
package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/config"
	"github.com/xkilldash9x/cyberrank-e2e/internal/reporting"
	"github.com/xkilldash9x/cyberrank-e2e/internal/store"
)

// mockStoreProvider hands out a store backed by a pgxmock pool.
type mockStoreProvider struct {
	pool    pgxmock.PgxPoolIface
	cleaned bool
}

func (p *mockStoreProvider) Create(ctx context.Context, cfg config.Interface) (*store.Store, func(), error) {
	s, err := store.New(ctx, p.pool, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	return s, func() { p.cleaned = true }, nil
}

func useMockStore(t *testing.T) (*mockStoreProvider, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	pool.ExpectPing()
	p := &mockStoreProvider{pool: pool}
	historyStore = p
	return p, pool
}

func TestHistoryCmd_RequiresDatabase(t *testing.T) {
	resetForTest(t)
	configFile := createTempConfig(t, "logger:\n  level: fatal\n")

	_, err := executeCommand(t, "--config", configFile, "history")

	require.Error(t, err)
	assert.ErrorIs(t, err, errHistoryDisabled)
}

func TestHistoryCmd_RejectsArgs(t *testing.T) {
	_, err := executeCommandNoPreRun(t, "history", "extra")
	require.Error(t, err)
}

func TestHistoryCmd_ListsFailures(t *testing.T) {
	resetForTest(t)
	provider, pool := useMockStore(t)
	configFile := createTempConfig(t, "logger:\n  level: fatal\ndatabase:\n  url: postgres://qa@localhost/e2e\n")

	started := time.Date(2026, 3, 1, 9, 0, 5, 0, time.UTC)
	pool.ExpectQuery("FROM scenario_results").
		WithArgs(reporting.StatusFailed, 3).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "feature", "tags", "status", "started_at", "duration_ms", "error", "artifacts_dir"}).
			AddRow("s2", "Wrong password", "login", []string{}, reporting.StatusFailed, started, int64(1500), "element not found\nstack", "/tmp/a/s2"))

	out, err := executeCommand(t, "--config", configFile, "history", "--limit", "3")

	require.NoError(t, err)
	assert.Contains(t, out, "SCENARIO")
	assert.Contains(t, out, "Wrong password")
	assert.Contains(t, out, "element not found")
	assert.NotContains(t, out, "stack", "only the first error line is shown")
	assert.True(t, provider.cleaned)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestHistoryCmd_Empty(t *testing.T) {
	resetForTest(t)
	_, pool := useMockStore(t)
	configFile := createTempConfig(t, "logger:\n  level: fatal\ndatabase:\n  url: postgres://qa@localhost/e2e\n")
	pool.ExpectQuery("FROM scenario_results").
		WithArgs(reporting.StatusFailed, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "feature", "tags", "status", "started_at", "duration_ms", "error", "artifacts_dir"}))

	out, err := executeCommand(t, "--config", configFile, "history")

	require.NoError(t, err)
	assert.Contains(t, out, "No failed scenarios recorded.")
}

func TestRunCmd_RecordsHistory(t *testing.T) {
	resetForTest(t)
	configFile, _ := suiteFixture(t, homepageFeature)
	t.Setenv("CYBERRANK_DATABASE_URL", "postgres://qa@localhost/e2e")
	provider, pool := useMockStore(t)
	useFakeBrowser(t, homepage())

	pool.ExpectBegin()
	pool.ExpectExec("INSERT INTO suite_runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 1, 1, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectCopyFrom(pgx.Identifier{"scenario_results"}, []string{"id", "run_id", "name", "feature", "tags", "status", "started_at", "duration_ms", "error", "artifacts_dir"}).
		WillReturnResult(1)
	pool.ExpectCommit()

	_, err := executeCommand(t, "--config", configFile, "run", "--report", filepath.Join(t.TempDir(), "r.txt"), "--report-format", "text")

	require.NoError(t, err)
	assert.True(t, provider.cleaned)
	assert.NoError(t, pool.ExpectationsWereMet())
}

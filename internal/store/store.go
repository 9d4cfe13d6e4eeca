// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cyberrank-e2e/internal/reporting"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

const (
	sqlCreateRuns = `
        CREATE TABLE IF NOT EXISTS suite_runs (
            id          TEXT PRIMARY KEY,
            started_at  TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL,
            total       INTEGER NOT NULL,
            passed      INTEGER NOT NULL,
            failed      INTEGER NOT NULL
        );
    `
	sqlCreateResults = `
        CREATE TABLE IF NOT EXISTS scenario_results (
            id            TEXT NOT NULL,
            run_id        TEXT NOT NULL REFERENCES suite_runs (id) ON DELETE CASCADE,
            name          TEXT NOT NULL,
            feature       TEXT NOT NULL,
            tags          TEXT[] NOT NULL,
            status        TEXT NOT NULL,
            started_at    TIMESTAMPTZ NOT NULL,
            duration_ms   BIGINT NOT NULL,
            error         TEXT NOT NULL,
            artifacts_dir TEXT NOT NULL,
            PRIMARY KEY (run_id, id)
        );
    `
	sqlInsertRun = `
        INSERT INTO suite_runs (id, started_at, finished_at, total, passed, failed)
        VALUES ($1, $2, $3, $4, $5, $6);
    `
	sqlRecentFailures = `
        SELECT id, name, feature, tags, status, started_at, duration_ms, error, artifacts_dir
        FROM scenario_results
        WHERE status = $1
        ORDER BY started_at DESC
        LIMIT $2;
    `
)

var resultColumns = []string{"id", "run_id", "name", "feature", "tags", "status", "started_at", "duration_ms", "error", "artifacts_dir"}

// Run describes one invocation of the suite.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store persists suite runs and scenario outcomes in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the history tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{sqlCreateRuns, sqlCreateResults} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create history schema: %w", err)
		}
	}
	return nil
}

// PersistRun writes the run and all of its scenario records in one
// transaction.
func (s *Store) PersistRun(ctx context.Context, run Run, records []reporting.ScenarioRecord) error {
	var passed, failed int
	for _, r := range records {
		if r.Status == reporting.StatusFailed {
			failed++
		} else {
			passed++
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlInsertRun, run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), len(records), passed, failed); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	if len(records) > 0 {
		rows := make([][]any, len(records))
		for i, r := range records {
			tags := r.Tags
			if tags == nil {
				tags = []string{}
			}
			rows[i] = []any{
				r.ID, run.ID, r.Name, r.Feature, tags, r.Status,
				r.StartedAt.UTC(), r.Duration.Milliseconds(), r.Error, r.ArtifactsDir,
			}
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"scenario_results"}, resultColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy scenario results: %w", err)
		}
		if int(n) != len(records) {
			return fmt.Errorf("mismatch in copied scenario results count: expected %d, got %d", len(records), n)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Persisted suite run.", zap.String("run_id", run.ID), zap.Int("scenarios", len(records)))
	return nil
}

// RecentFailures returns the latest failed scenarios across runs, newest
// first.
func (s *Store) RecentFailures(ctx context.Context, limit int) ([]reporting.ScenarioRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	rows, err := s.pool.Query(ctx, sqlRecentFailures, reporting.StatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenario results: %w", err)
	}
	defer rows.Close()

	var out []reporting.ScenarioRecord
	for rows.Next() {
		var (
			r          reporting.ScenarioRecord
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Feature, &r.Tags, &r.Status, &r.StartedAt, &durationMS, &r.Error, &r.ArtifactsDir); err != nil {
			return nil, fmt.Errorf("failed to scan scenario row: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

// Reporter buffers scenario records and persists them as one run on Close.
type Reporter struct {
	store *Store
	// ctx outlives the suite's cancellation so an interrupted run is still
	// recorded.
	ctx     context.Context
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	run     Run
	records []reporting.ScenarioRecord
	closed  bool
}

var _ reporting.Reporter = (*Reporter)(nil)

// NewReporter starts a run with the given ID.
func (s *Store) NewReporter(ctx context.Context, runID string, timeout time.Duration) *Reporter {
	r := &Reporter{
		store:   s,
		ctx:     context.WithoutCancel(ctx),
		timeout: timeout,
		now:     time.Now,
	}
	r.run = Run{ID: runID, StartedAt: r.now()}
	return r
}

func (r *Reporter) Write(rec *reporting.ScenarioRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("history reporter is closed")
	}
	r.records = append(r.records, *rec)
	return nil
}

// Close persists the buffered run. It is a no-op after the first call.
func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.run.FinishedAt = r.now()

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()
	return r.store.PersistRun(ctx, r.run, r.records)
}

// File: cmd/history.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/cyberrank-e2e/internal/config"
	"github.com/xkilldash9x/cyberrank-e2e/internal/observability"
	"github.com/xkilldash9x/cyberrank-e2e/internal/reporting"
	"github.com/xkilldash9x/cyberrank-e2e/internal/store"
)

var errHistoryDisabled = errors.New("run history is not configured (set database.url or CYBERRANK_DATABASE_URL)")

// storeProvider creates the run history store. Tests inject a store backed
// by a mock pool.
type storeProvider interface {
	// Create returns the store and a cleanup function that releases the pool.
	Create(ctx context.Context, cfg config.Interface) (*store.Store, func(), error)
}

type defaultStoreProvider struct{}

var historyStore storeProvider = defaultStoreProvider{}

func (defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (*store.Store, func(), error) {
	logger := observability.Component("store")
	if cfg.Database().URL == "" {
		return nil, nil, errHistoryDisabled
	}

	pool, err := pgxpool.New(ctx, cfg.Database().URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return s, cleanup, nil
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent failed scenarios recorded by previous runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runHistory(cmd.Context(), cfg, limit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of failures to show")
	return cmd
}

func runHistory(ctx context.Context, cfg config.Interface, limit int, out io.Writer) error {
	s, cleanup, err := historyStore.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer cleanup()

	failures, err := s.RecentFailures(ctx, limit)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		fmt.Fprintln(out, "No failed scenarios recorded.")
		return nil
	}
	return writeFailures(out, failures)
}

func writeFailures(out io.Writer, failures []reporting.ScenarioRecord) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tFEATURE\tSCENARIO\tERROR\tARTIFACTS")
	for _, f := range failures {
		msg := f.Error
		if i := strings.IndexByte(msg, '\n'); i >= 0 {
			msg = msg[:i]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			f.StartedAt.Local().Format(time.DateTime), f.Feature, f.Name, msg, f.ArtifactsDir)
	}
	return tw.Flush()
}

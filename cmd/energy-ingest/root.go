package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i474232898/energy-data-ingestion/internal/config"
	"github.com/i474232898/energy-data-ingestion/internal/energy"
	"github.com/i474232898/energy-data-ingestion/internal/states"
	"github.com/i474232898/energy-data-ingestion/internal/store"
	"github.com/i474232898/energy-data-ingestion/internal/store/postgres"
	"github.com/i474232898/energy-data-ingestion/internal/store/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "energy-ingest",
	Short: "Ingest EIA gasoline prices and electricity rates by state",
	Long: `Fetches weekly retail gasoline prices and monthly retail electricity
rates for every state in the states table from the EIA API and upserts
them into the configured database.`,
	SilenceUsage: true,
}

var (
	flagWorkers int
	flagStates  string
	flagDryRun  bool
)

func init() {
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "concurrent fetch workers (overrides FETCH_WORKERS)")
	rootCmd.PersistentFlags().StringVar(&flagStates, "states", "", "comma separated state codes to ingest (overrides STATES)")
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "use an in-memory store seeded with all states")
}

// backend is the storage a run needs: the states directory source, the
// record store and seeding.
type backend interface {
	energy.StateSource
	energy.RecordStore
	SeedStates(ctx context.Context, refs []energy.StateRef) (int, error)
	Close() error
}

// loadConfig loads and validates configuration, applying flag overrides.
// needSource is false for commands that never call the EIA API.
func loadConfig(cmd *cobra.Command, needSource bool) (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if cmd.Flags().Changed("states") {
		cfg.States = config.SplitStates(flagStates)
	}
	if flagDryRun {
		cfg.DBDriver = config.DriverMemory
	}
	validateFn := cfg.Validate
	if !needSource {
		validateFn = cfg.ValidateStorage
	}
	if err := validateFn(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openBackend opens the configured store. The caller owns Close.
func openBackend(ctx context.Context, cfg *config.AppConfig) (backend, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	case config.DriverSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case config.DriverMemory:
		s := store.NewMemoryStore()
		if _, err := s.SeedStates(ctx, states.All()); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i474232898/energy-data-ingestion/internal/states"
)

var seedStatesCmd = &cobra.Command{
	Use:   "seed-states",
	Short: "Create the states table if absent and insert the 50 states",
	Args:  cobra.NoArgs,
	RunE:  runSeedStates,
}

func init() {
	rootCmd.AddCommand(seedStatesCmd)
}

func runSeedStates(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}

	refs := states.All()
	if err := states.Validate(refs); err != nil {
		return err
	}

	db, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.DBDriver, err)
	}
	defer db.Close()

	added, err := db.SeedStates(ctx, refs)
	if err != nil {
		return fmt.Errorf("seeding states: %w", err)
	}

	cmd.Printf("states table populated: %d added, %d already present\n", added, len(refs)-added)
	return nil
}

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/i474232898/energy-data-ingestion/internal/energy"
	"github.com/i474232898/energy-data-ingestion/internal/energy/providers"
)

var fuelCmd = &cobra.Command{
	Use:   "fuel",
	Short: "Ingest weekly regular and premium gasoline prices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIngest(cmd, energy.FamilyFuel)
	},
}

var electricityCmd = &cobra.Command{
	Use:   "electricity",
	Short: "Ingest monthly residential electricity rates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIngest(cmd, energy.FamilyElectricity)
	},
}

func init() {
	rootCmd.AddCommand(fuelCmd)
	rootCmd.AddCommand(electricityCmd)
}

// runIngest performs one pipeline run. Only startup faults and storage
// faults return an error; per-state fetch failures are in the summary.
func runIngest(cmd *cobra.Command, family energy.Family) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}

	db, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.DBDriver, err)
	}
	defer db.Close()

	// Shared HTTP client for outbound EIA calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client := providers.NewEIAClient(httpClient, providers.EIAConfig{
		APIKey:        cfg.EIAAPIKey,
		BaseURL:       cfg.EIABaseURL,
		PageLength:    cfg.PageLength,
		RatePerSecond: cfg.RateLimit,
	})

	pipeline := energy.NewPipeline(
		energy.NewStateDirectory(db, cfg.States...),
		client,
		energy.DefaultCatalogue(),
		energy.PipelineConfig{
			Workers:        cfg.Workers,
			RequestTimeout: cfg.RequestTimeout,
		},
	)
	service := energy.NewService(pipeline, energy.NewReconciler(db))

	summary, err := service.Ingest(ctx, family)
	if err != nil {
		return fmt.Errorf("%s run failed: %w", family, err)
	}

	cmd.Println(summary.String())
	return nil
}

// Command processor runs the churn feature pipeline once: ingest the
// order exports, clean them, aggregate per-customer features, and write
// the feature table and reports.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"churncli/internal/cleaning"
	"churncli/internal/config"
	"churncli/internal/exporter"
	"churncli/internal/features"
	"churncli/internal/infrastructure"
	"churncli/internal/ingest"
	"churncli/internal/operations"
)

func main() {
	configFile := flag.String("config", "churnpulse.yml", "configuration file")
	dataDir := flag.String("in", "", "input directory for order exports (overrides paths.data_dir)")
	cutoff := flag.String("cutoff", "", "analysis cutoff date YYYY-MM-DD (overrides pipeline.cutoff_date)")
	flag.Parse()

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Paths.DataDir = *dataDir
	}
	if *cutoff != "" {
		cfg.Pipeline.CutoffDate = *cutoff
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid cutoff date", "error", err)
			os.Exit(1)
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	paths := config.ResolvePaths(cfg.Paths)
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("failed to create directories", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loader := ingest.NewLoader(logger)
	cleaner := cleaning.NewCleaner(logger)
	aggregator := features.NewAggregator(logger)
	writer := exporter.NewCSVWriter(paths)

	steps := operations.DefaultSteps(cfg, paths, loader, cleaner, aggregator, writer)
	manager := operations.NewManager(steps, logger)

	state, err := manager.Run(ctx)
	if err != nil {
		logger.Error("pipeline failed", "run_id", state.ID, "error", err)
		os.Exit(1)
	}

	summary := state.Summarize()
	logger.Info("pipeline completed",
		"run_id", summary.ID,
		"customers", summary.Customers,
		"dropped_rows", summary.DroppedRows,
		"feature_table", paths.FeaturesCSV)
}

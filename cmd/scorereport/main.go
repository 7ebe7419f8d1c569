// Command scorereport scores every customer in the persisted feature
// table against the configured artifact and writes churn_scores.csv.
package main

import (
	"flag"
	"log/slog"
	"os"

	"churncli/internal/config"
	"churncli/internal/exporter"
	"churncli/internal/infrastructure"
	"churncli/internal/scoring"
)

func main() {
	configFile := flag.String("config", "churnpulse.yml", "configuration file")
	featuresFile := flag.String("features", "", "feature table CSV (defaults to the pipeline output)")
	flag.Parse()

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	paths := config.ResolvePaths(cfg.Paths)
	if *featuresFile == "" {
		*featuresFile = paths.FeaturesCSV
	}

	artifact, err := scoring.LoadArtifact(cfg.Scoring.ArtifactFile)
	if err != nil {
		logger.Error("failed to load scoring artifact",
			"path", cfg.Scoring.ArtifactFile, "error", err)
		os.Exit(1)
	}
	scorer := scoring.NewScorer(artifact)

	rows, err := exporter.ReadFeatures(*featuresFile)
	if err != nil {
		logger.Error("failed to read feature table",
			"path", *featuresFile, "error", err)
		os.Exit(1)
	}

	scored := make([]exporter.ScoredRow, 0, len(rows))
	for _, row := range rows {
		p, err := scorer.ScoreRow(row)
		if err != nil {
			logger.Error("failed to score customer",
				"customer_id", row.CustomerID, "error", err)
			os.Exit(1)
		}
		scored = append(scored, exporter.ScoredRow{
			CustomerID:  row.CustomerID,
			Probability: p,
			Churner:     p >= cfg.Scoring.Threshold,
		})
	}

	writer := exporter.NewCSVWriter(paths)
	if err := writer.WriteScores(paths.ScoredCSV, scored); err != nil {
		logger.Error("failed to write scores", "error", err)
		os.Exit(1)
	}

	logger.Info("batch scoring completed",
		"customers", len(scored),
		"artifact_version", artifact.Version(),
		"output", paths.ScoredCSV)
}

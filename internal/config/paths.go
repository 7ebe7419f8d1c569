package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains the resolved application paths. This is the single
// source of truth for file locations: export inputs, generated reports,
// model artifacts, and logs.
type Paths struct {
	DataDir    string
	ExportsDir string
	ReportsDir string
	ModelsDir  string
	LogsDir    string

	// Well-known report files
	FeaturesCSV    string
	DropReportCSV  string
	RFMSegmentsCSV string
	TopProductsCSV string
	ScoredCSV      string
}

// ResolvePaths builds the Paths set from configuration. Unset directories
// default to subdirectories of the data dir.
func ResolvePaths(cfg PathsConfig) *Paths {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}

	exportsDir := cfg.ExportsDir
	if exportsDir == "" {
		exportsDir = filepath.Join(dataDir, "exports")
	}
	reportsDir := cfg.ReportsDir
	if reportsDir == "" {
		reportsDir = filepath.Join(dataDir, "reports")
	}
	modelsDir := cfg.ModelsDir
	if modelsDir == "" {
		modelsDir = "models"
	}
	logsDir := cfg.LogsDir
	if logsDir == "" {
		logsDir = "logs"
	}

	return &Paths{
		DataDir:    dataDir,
		ExportsDir: exportsDir,
		ReportsDir: reportsDir,
		ModelsDir:  modelsDir,
		LogsDir:    logsDir,

		FeaturesCSV:    filepath.Join(reportsDir, "churn_features.csv"),
		DropReportCSV:  filepath.Join(reportsDir, "drop_report.csv"),
		RFMSegmentsCSV: filepath.Join(reportsDir, "rfm_segments.csv"),
		TopProductsCSV: filepath.Join(reportsDir, "top_products.csv"),
		ScoredCSV:      filepath.Join(reportsDir, "churn_scores.csv"),
	}
}

// EnsureDirectories creates all output directories if they do not exist.
// The exports dir is input-only and is not created here.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetReportPath returns the full path of a report file.
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetModelPath returns the full path of a model artifact file.
func (p *Paths) GetModelPath(filename string) string {
	return filepath.Join(p.ModelsDir, filename)
}

// GetLogPath returns the full path of a log file.
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists reports whether the path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "", cfg.Pipeline.CutoffDate)
	assert.Equal(t, 90, cfg.Pipeline.InactivityThresholdDays)
	assert.Equal(t, 10, cfg.Pipeline.TopProducts)
	assert.Equal(t, 4, cfg.Pipeline.RFMSegments)
	assert.Equal(t, "models/churn_pipe.json", cfg.Scoring.ArtifactFile)
	assert.Equal(t, 0.5, cfg.Scoring.Threshold)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Server.RateLimit.Enabled)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "churnpulse.yml")
	content := `
server:
  port: 9090
pipeline:
  cutoff_date: "2024-03-01"
  inactivity_threshold_days: 60
scoring:
  threshold: 0.7
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	cfg, err := LoadFrom(file)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "2024-03-01", cfg.Pipeline.CutoffDate)
	assert.Equal(t, 60, cfg.Pipeline.InactivityThresholdDays)
	assert.Equal(t, 0.7, cfg.Scoring.Threshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "churnpulse.yml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("CHURN_SERVER_PORT", "7070")
	t.Setenv("CHURN_PIPELINE_INACTIVITY_THRESHOLD_DAYS", "30")

	cfg, err := LoadFrom(file)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Pipeline.InactivityThresholdDays)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad cutoff date", func(c *Config) { c.Pipeline.CutoffDate = "03/01/2024" }},
		{"zero threshold days", func(c *Config) { c.Pipeline.InactivityThresholdDays = 0 }},
		{"threshold above one", func(c *Config) { c.Scoring.Threshold = 1.5 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"too many rfm segments", func(c *Config) { c.Pipeline.RFMSegments = 50 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCutoffTime(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.CutoffTime().IsZero())

	cfg.Pipeline.CutoffDate = "2024-03-01"
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), cfg.CutoffTime())
}

func TestResolvePathsDefaults(t *testing.T) {
	paths := ResolvePaths(PathsConfig{})
	assert.Equal(t, "data", paths.DataDir)
	assert.Equal(t, filepath.Join("data", "exports"), paths.ExportsDir)
	assert.Equal(t, filepath.Join("data", "reports"), paths.ReportsDir)
	assert.Equal(t, filepath.Join("data", "reports", "churn_features.csv"), paths.FeaturesCSV)
	assert.Equal(t, filepath.Join("data", "reports", "churn_scores.csv"), paths.ScoredCSV)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	paths := ResolvePaths(PathsConfig{
		DataDir: filepath.Join(dir, "data"),
		LogsDir: filepath.Join(dir, "logs"),
	})
	require.NoError(t, paths.EnsureDirectories())

	assert.DirExists(t, paths.ReportsDir)
	assert.DirExists(t, paths.LogsDir)
	// Exports dir is input-only and intentionally not created.
	assert.NoDirExists(t, paths.ExportsDir)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"churncli/internal/config"
	"churncli/internal/exporter"
	"churncli/pkg/contracts/domain"
)

// FeatureStats describes one feature's distribution over the persisted
// feature table. The dashboard uses it to bound and default its sliders:
// min/max are the 1st/99th percentiles so outliers do not stretch the
// controls.
type FeatureStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// DataService reads the persisted feature table snapshot for the
// dashboard. It reads from disk on each call; the table only changes
// when a pipeline run rewrites it.
type DataService struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewDataService creates the data service.
func NewDataService(paths *config.Paths, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		paths:  paths,
		logger: logger.With(slog.String("component", "data_service")),
	}
}

// Features returns the persisted feature table.
func (s *DataService) Features(ctx context.Context) ([]domain.CustomerFeatures, error) {
	if !config.FileExists(s.paths.FeaturesCSV) {
		return nil, ErrNoFeatureTable
	}
	rows, err := exporter.ReadFeatures(s.paths.FeaturesCSV)
	if err != nil {
		return nil, fmt.Errorf("load feature table: %w", err)
	}
	return rows, nil
}

// FeatureStats returns per-feature slider statistics over the persisted
// table, keyed by canonical feature name.
func (s *DataService) FeatureStats(ctx context.Context) (map[string]FeatureStats, error) {
	rows, err := s.Features(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoFeatureTable
	}

	columns := make(map[string][]float64, len(domain.FeatureColumns()))
	for _, row := range rows {
		for name, value := range row.Vector() {
			columns[name] = append(columns[name], value)
		}
	}

	stats := make(map[string]FeatureStats, len(columns))
	for name, values := range columns {
		sort.Float64s(values)
		stats[name] = FeatureStats{
			Min:    percentile(values, 0.01),
			Max:    percentile(values, 0.99),
			Median: percentile(values, 0.5),
		}
	}

	s.logger.DebugContext(ctx, "feature stats computed", slog.Int("rows", len(rows)))
	return stats, nil
}

// percentile computes the linearly interpolated q-percentile of sorted
// values.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

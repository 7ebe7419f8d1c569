package operations

import (
	"context"
	"fmt"

	"churncli/internal/cleaning"
	"churncli/internal/config"
	"churncli/internal/exporter"
	"churncli/internal/features"
	"churncli/internal/ingest"
)

// Step IDs in pipeline order.
const (
	StepIDIngest    = "ingest"
	StepIDClean     = "clean"
	StepIDAggregate = "aggregate"
	StepIDExport    = "export"
)

// IngestStep loads export files into the raw line-item sequence.
type IngestStep struct {
	loader *ingest.Loader
	dir    string
}

// NewIngestStep creates the ingestion step over the exports directory.
func NewIngestStep(loader *ingest.Loader, dir string) *IngestStep {
	return &IngestStep{loader: loader, dir: dir}
}

func (s *IngestStep) ID() string   { return StepIDIngest }
func (s *IngestStep) Name() string { return "Ingest order exports" }

func (s *IngestStep) Validate(state *RunState) error {
	if s.dir == "" {
		return fmt.Errorf("exports directory not configured")
	}
	return nil
}

func (s *IngestStep) Execute(ctx context.Context, state *RunState) error {
	items, err := s.loader.LoadDir(ctx, s.dir)
	if err != nil {
		return err
	}
	state.SetRawItems(items)
	return nil
}

// CleanStep validates and normalizes the raw sequence.
type CleanStep struct {
	cleaner *cleaning.Cleaner
}

// NewCleanStep creates the cleaning step.
func NewCleanStep(cleaner *cleaning.Cleaner) *CleanStep {
	return &CleanStep{cleaner: cleaner}
}

func (s *CleanStep) ID() string   { return StepIDClean }
func (s *CleanStep) Name() string { return "Clean and normalize line items" }

func (s *CleanStep) Validate(state *RunState) error {
	if state.RawItems() == nil {
		return fmt.Errorf("no raw line items; ingest must run first")
	}
	return nil
}

func (s *CleanStep) Execute(ctx context.Context, state *RunState) error {
	items, report := s.cleaner.Clean(state.RawItems())
	state.SetCleanItems(items, report)
	return nil
}

// AggregateStep computes customer features, RFM segments, and the
// top-products rollup from the validated sequence.
type AggregateStep struct {
	aggregator *features.Aggregator
	cfg        *config.Config
}

// NewAggregateStep creates the aggregation step.
func NewAggregateStep(aggregator *features.Aggregator, cfg *config.Config) *AggregateStep {
	return &AggregateStep{aggregator: aggregator, cfg: cfg}
}

func (s *AggregateStep) ID() string   { return StepIDAggregate }
func (s *AggregateStep) Name() string { return "Aggregate customer features" }

func (s *AggregateStep) Validate(state *RunState) error {
	if state.CleanItems() == nil {
		return fmt.Errorf("no cleaned line items; clean must run first")
	}
	return nil
}

func (s *AggregateStep) Execute(ctx context.Context, state *RunState) error {
	items := state.CleanItems()
	rows := s.aggregator.Aggregate(items, features.Config{
		CutoffDate:              s.cfg.CutoffTime(),
		InactivityThresholdDays: s.cfg.Pipeline.InactivityThresholdDays,
	})
	state.SetFeatureRows(rows)
	state.SetSegments(features.RFMSegments(rows, s.cfg.Pipeline.RFMSegments))
	state.SetTopProducts(features.TopProducts(items, s.cfg.Pipeline.TopProducts))
	return nil
}

// ExportStep persists the feature table and the companion reports.
type ExportStep struct {
	writer *exporter.CSVWriter
	paths  *config.Paths
}

// NewExportStep creates the export step.
func NewExportStep(writer *exporter.CSVWriter, paths *config.Paths) *ExportStep {
	return &ExportStep{writer: writer, paths: paths}
}

func (s *ExportStep) ID() string   { return StepIDExport }
func (s *ExportStep) Name() string { return "Export feature table and reports" }

func (s *ExportStep) Validate(state *RunState) error {
	if state.FeatureRows() == nil {
		return fmt.Errorf("no feature rows; aggregate must run first")
	}
	return nil
}

func (s *ExportStep) Execute(ctx context.Context, state *RunState) error {
	if err := s.writer.WriteFeatures(s.paths.FeaturesCSV, state.FeatureRows()); err != nil {
		return fmt.Errorf("write feature table: %w", err)
	}
	if err := s.writer.WriteDropReport(s.paths.DropReportCSV, state.DropReport()); err != nil {
		return fmt.Errorf("write drop report: %w", err)
	}
	if err := s.writer.WriteRFMSegments(s.paths.RFMSegmentsCSV, state.Segments()); err != nil {
		return fmt.Errorf("write rfm segments: %w", err)
	}
	if err := s.writer.WriteTopProducts(s.paths.TopProductsCSV, state.TopProducts()); err != nil {
		return fmt.Errorf("write top products: %w", err)
	}
	return nil
}

// DefaultSteps wires the standard four-step pipeline.
func DefaultSteps(cfg *config.Config, paths *config.Paths, loader *ingest.Loader, cleaner *cleaning.Cleaner, aggregator *features.Aggregator, writer *exporter.CSVWriter) []Step {
	return []Step{
		NewIngestStep(loader, paths.ExportsDir),
		NewCleanStep(cleaner),
		NewAggregateStep(aggregator, cfg),
		NewExportStep(writer, paths),
	}
}

package operations

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies pipeline spans.
const TracerName = "churncli.pipeline"

// StepTracer provides OpenTelemetry instrumentation for pipeline runs.
type StepTracer struct {
	tracer trace.Tracer
}

// NewStepTracer creates a tracer against the global provider.
func NewStepTracer() *StepTracer {
	return &StepTracer{tracer: otel.Tracer(TracerName)}
}

// StartRun opens the span covering a whole pipeline run.
func (t *StepTracer) StartRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
}

// EndRun records the run outcome on its span.
func (t *StepTracer) EndRun(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// StartStep opens the span for one step execution.
func (t *StepTracer) StartStep(ctx context.Context, runID, stepID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "pipeline.step."+stepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", stepID),
		),
	)
}

// EndStep records the step outcome and closes its span.
func (t *StepTracer) EndStep(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// StatusBroadcaster receives run progress events. The websocket hub
// implements it; the CLI runs with the no-op default.
type StatusBroadcaster interface {
	BroadcastRunUpdate(summary Summary)
}

// noopBroadcaster drops all events.
type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastRunUpdate(Summary) {}

// Manager executes pipeline runs and retains their states for
// inspection. Runs execute steps strictly in order; a step failure
// aborts the run and the remaining steps never start.
type Manager struct {
	steps       []Step
	logger      *slog.Logger
	tracer      *StepTracer
	broadcaster StatusBroadcaster

	mu   sync.RWMutex
	runs map[string]*RunState
	// order preserves run creation order for listing.
	order []string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBroadcaster attaches a status broadcaster.
func WithBroadcaster(b StatusBroadcaster) ManagerOption {
	return func(m *Manager) {
		if b != nil {
			m.broadcaster = b
		}
	}
}

// WithTracer attaches an OpenTelemetry step tracer.
func WithTracer(t *StepTracer) ManagerOption {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}

// NewManager creates a manager over the given steps.
func NewManager(steps []Step, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		steps:       steps,
		logger:      logger.With(slog.String("component", "operations")),
		tracer:      NewStepTracer(),
		broadcaster: noopBroadcaster{},
		runs:        make(map[string]*RunState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewRun registers a new pending run and returns its state.
func (m *Manager) NewRun() *RunState {
	runID := uuid.New().String()
	state := NewRunState(runID, m.steps)

	m.mu.Lock()
	m.runs[runID] = state
	m.order = append(m.order, runID)
	m.mu.Unlock()

	return state
}

// Run executes the pipeline once and returns the finished run state.
// The returned error is the first step failure, if any; the run state
// records it either way.
func (m *Manager) Run(ctx context.Context) (*RunState, error) {
	state := m.NewRun()
	err := m.Execute(ctx, state)
	return state, err
}

// Execute runs a registered pending run to completion.
func (m *Manager) Execute(ctx context.Context, state *RunState) error {
	logger := m.logger.With(slog.String("run_id", state.ID))
	logger.InfoContext(ctx, "pipeline run started", slog.Int("steps", len(m.steps)))

	ctx, span := m.tracer.StartRun(ctx, state.ID)
	defer span.End()

	state.setStatus(RunStatusRunning)
	m.broadcaster.BroadcastRunUpdate(state.Summarize())

	for _, step := range m.steps {
		if err := m.runStep(ctx, step, state, logger); err != nil {
			state.setError(err)
			state.setStatus(RunStatusFailed)
			m.tracer.EndRun(span, err)
			m.broadcaster.BroadcastRunUpdate(state.Summarize())
			runsFailed.Inc()
			logger.ErrorContext(ctx, "pipeline run failed",
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
			return fmt.Errorf("step %s: %w", step.ID(), err)
		}
	}

	state.setStatus(RunStatusCompleted)
	m.tracer.EndRun(span, nil)
	m.broadcaster.BroadcastRunUpdate(state.Summarize())

	runsCompleted.Inc()
	rowsDropped.Add(float64(state.DropReport().Total()))
	featureRowsWritten.Add(float64(len(state.FeatureRows())))

	logger.InfoContext(ctx, "pipeline run completed",
		slog.Int("customers", len(state.FeatureRows())),
		slog.Int("dropped_rows", state.DropReport().Total()))
	return nil
}

func (m *Manager) runStep(ctx context.Context, step Step, state *RunState, logger *slog.Logger) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stepState := state.StepState(step.ID())
	if err := step.Validate(state); err != nil {
		stepState.Fail(err)
		return fmt.Errorf("validate: %w", err)
	}

	stepState.Start()
	m.broadcaster.BroadcastRunUpdate(state.Summarize())
	logger.InfoContext(ctx, "step started", slog.String("step", step.ID()))

	stepCtx, span := m.tracer.StartStep(ctx, state.ID, step.ID())
	err := step.Execute(stepCtx, state)
	m.tracer.EndStep(span, err)

	if err != nil {
		stepState.Fail(err)
		return err
	}

	stepState.Complete("")
	m.broadcaster.BroadcastRunUpdate(state.Summarize())
	logger.InfoContext(ctx, "step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", stepState.Duration()))
	return nil
}

// Get returns the run with the given ID.
func (m *Manager) Get(id string) (*RunState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.runs[id]
	return state, ok
}

// List returns summaries of all runs in creation order.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]Summary, 0, len(m.order))
	for _, id := range m.order {
		summaries = append(summaries, m.runs[id].Summarize())
	}
	return summaries
}

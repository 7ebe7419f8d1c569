package services

import (
	"context"
	"log/slog"
	"sync"

	"churncli/internal/operations"
)

// OperationsService exposes pipeline runs to the HTTP API. Triggered
// runs execute in the background; progress reaches the dashboard
// through the websocket hub, and the run state stays queryable here.
type OperationsService struct {
	manager *operations.Manager
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewOperationsService creates the operations service.
func NewOperationsService(manager *operations.Manager, logger *slog.Logger) *OperationsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationsService{
		manager: manager,
		logger:  logger.With(slog.String("component", "operations_service")),
	}
}

// Trigger registers a pipeline run, starts it in the background, and
// returns the pending run's summary. Only one run executes at a time:
// the pipeline rewrites the feature table in place, so overlapping runs
// would race on the output files. The second return is false when a run
// is already in progress.
func (s *OperationsService) Trigger(ctx context.Context) (operations.Summary, bool) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return operations.Summary{}, false
	}
	s.running = true
	s.mu.Unlock()

	state := s.manager.NewRun()

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		// The run outlives the HTTP request that triggered it.
		if err := s.manager.Execute(context.WithoutCancel(ctx), state); err != nil {
			s.logger.Error("pipeline run failed",
				slog.String("run_id", state.ID),
				slog.String("error", err.Error()))
		}
	}()

	return state.Summarize(), true
}

// Get returns the summary of a run.
func (s *OperationsService) Get(id string) (operations.Summary, error) {
	state, ok := s.manager.Get(id)
	if !ok {
		return operations.Summary{}, ErrRunNotFound
	}
	return state.Summarize(), nil
}

// List returns all run summaries in creation order.
func (s *OperationsService) List() []operations.Summary {
	return s.manager.List()
}

// Package operations orchestrates the churn feature pipeline as a
// sequence of steps with observable per-step state: ingest exports,
// clean line items, aggregate customer features, export reports. Runs
// are one-shot and synchronous; the package exists so the CLI, the HTTP
// API, and the websocket progress stream all see the same run model.
package operations

import (
	"context"
	"sync"
	"time"
)

// Step is a single stage of a pipeline run.
type Step interface {
	// ID returns the unique identifier for this step
	ID() string
	// Name returns the human-readable name for this step
	Name() string
	// Execute runs the step against the shared run state
	Execute(ctx context.Context, state *RunState) error
	// Validate checks whether the step can run with the current state
	Validate(state *RunState) error
}

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState represents the runtime state of a step
type StepState struct {
	mu        sync.RWMutex
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Message   string     `json:"message,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// NewStepState creates a step state in the pending status.
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:     id,
		Name:   name,
		Status: StepStatusPending,
	}
}

// Start marks the step as active and sets the start time
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
}

// Complete marks the step as completed and sets the end time
func (s *StepState) Complete(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusCompleted
	s.Message = message
}

// Fail marks the step as failed with the given error
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusFailed
	if err != nil {
		s.Error = err.Error()
	}
}

// Duration returns the duration of the step execution
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// snapshot returns a copy safe to serialize concurrently with updates.
func (s *StepState) snapshot() StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StepState{
		ID:        s.ID,
		Name:      s.Name,
		Status:    s.Status,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Message:   s.Message,
		Error:     s.Error,
	}
}

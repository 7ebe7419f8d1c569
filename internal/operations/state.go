package operations

import (
	"sync"
	"time"

	"churncli/internal/cleaning"
	"churncli/internal/features"
	"churncli/pkg/contracts/domain"
)

// RunStatus is the overall status of a pipeline run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunState is the shared state of one pipeline run. Steps communicate
// exclusively through it: each stage reads its input snapshot and writes
// its output here, so there is no shared mutable global anywhere in the
// pipeline.
type RunState struct {
	mu sync.RWMutex

	ID        string       `json:"id"`
	Status    RunStatus    `json:"status"`
	StartTime time.Time    `json:"start_time"`
	EndTime   *time.Time   `json:"end_time,omitempty"`
	Error     string       `json:"error,omitempty"`
	Steps     []*StepState `json:"steps"`

	// Stage data, in pipeline order. Not serialized: runs can carry
	// hundreds of thousands of line items.
	rawItems   []domain.RawLineItem
	cleanItems []domain.LineItem
	dropReport cleaning.DropReport
	rows       []domain.CustomerFeatures
	segments   []features.RFMSegment
	products   []features.ProductTotal
}

// NewRunState creates a run state with pending steps.
func NewRunState(id string, steps []Step) *RunState {
	states := make([]*StepState, len(steps))
	for i, step := range steps {
		states[i] = NewStepState(step.ID(), step.Name())
	}
	return &RunState{
		ID:        id,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		Steps:     states,
	}
}

// StepState returns the state of the step with the given ID, or nil.
func (s *RunState) StepState(id string) *StepState {
	for _, st := range s.Steps {
		if st.ID == id {
			return st
		}
	}
	return nil
}

func (s *RunState) setStatus(status RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	if status == RunStatusCompleted || status == RunStatusFailed {
		now := time.Now()
		s.EndTime = &now
	}
}

func (s *RunState) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.Error = err.Error()
	}
}

// SetRawItems stores the ingested raw sequence.
func (s *RunState) SetRawItems(items []domain.RawLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawItems = items
}

// RawItems returns the ingested raw sequence.
func (s *RunState) RawItems() []domain.RawLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rawItems
}

// SetCleanItems stores the validated sequence and its drop report.
func (s *RunState) SetCleanItems(items []domain.LineItem, report cleaning.DropReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanItems = items
	s.dropReport = report
}

// CleanItems returns the validated sequence.
func (s *RunState) CleanItems() []domain.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cleanItems
}

// DropReport returns the cleaning drop counts.
func (s *RunState) DropReport() cleaning.DropReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropReport
}

// SetFeatureRows stores the aggregated feature table.
func (s *RunState) SetFeatureRows(rows []domain.CustomerFeatures) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
}

// FeatureRows returns the aggregated feature table.
func (s *RunState) FeatureRows() []domain.CustomerFeatures {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows
}

// SetSegments stores the RFM segment table.
func (s *RunState) SetSegments(segments []features.RFMSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = segments
}

// Segments returns the RFM segment table.
func (s *RunState) Segments() []features.RFMSegment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.segments
}

// SetTopProducts stores the top-products report rows.
func (s *RunState) SetTopProducts(products []features.ProductTotal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
}

// TopProducts returns the top-products report rows.
func (s *RunState) TopProducts() []features.ProductTotal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products
}

// Summary is the serializable view of a run used by the HTTP API and
// the websocket progress stream.
type Summary struct {
	ID          string      `json:"id"`
	Status      RunStatus   `json:"status"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     *time.Time  `json:"end_time,omitempty"`
	Error       string      `json:"error,omitempty"`
	Steps       []StepState `json:"steps"`
	Customers   int         `json:"customers"`
	DroppedRows int         `json:"dropped_rows"`
}

// Summarize returns a consistent snapshot of the run.
func (s *RunState) Summarize() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	steps := make([]StepState, len(s.Steps))
	for i, st := range s.Steps {
		steps[i] = st.snapshot()
	}
	return Summary{
		ID:          s.ID,
		Status:      s.Status,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Error:       s.Error,
		Steps:       steps,
		Customers:   len(s.rows),
		DroppedRows: s.dropReport.Total(),
	}
}

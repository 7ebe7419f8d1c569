package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churncli/internal/operations"
)

// blockingStep holds a run open until released.
type blockingStep struct {
	release chan struct{}
}

func (s *blockingStep) ID() string                                  { return "blocking" }
func (s *blockingStep) Name() string                                { return "blocking step" }
func (s *blockingStep) Validate(state *operations.RunState) error   { return nil }
func (s *blockingStep) Execute(ctx context.Context, state *operations.RunState) error {
	<-s.release
	return nil
}

func waitForStatus(t *testing.T, svc *OperationsService, id string, status operations.RunStatus) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		summary, err := svc.Get(id)
		require.NoError(t, err)
		if summary.Status == status {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("run %s never reached status %s (last: %s)", id, status, summary.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestOperationsServiceSingleRunAtATime(t *testing.T) {
	step := &blockingStep{release: make(chan struct{})}
	manager := operations.NewManager([]operations.Step{step}, testLogger())
	svc := NewOperationsService(manager, testLogger())

	first, started := svc.Trigger(context.Background())
	require.True(t, started)
	assert.Equal(t, operations.RunStatusPending, first.Status)

	// A second trigger while the first run holds the pipeline is refused.
	_, started = svc.Trigger(context.Background())
	assert.False(t, started)

	close(step.release)
	waitForStatus(t, svc, first.ID, operations.RunStatusCompleted)

	// Once the run finishes, triggering works again. The running flag
	// clears just after the run completes, so poll briefly.
	step.release = make(chan struct{})
	close(step.release)
	var second operations.Summary
	require.Eventually(t, func() bool {
		var ok bool
		second, ok = svc.Trigger(context.Background())
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	waitForStatus(t, svc, second.ID, operations.RunStatusCompleted)
}

func TestOperationsServiceRunSurvivesCallerCancel(t *testing.T) {
	step := &blockingStep{release: make(chan struct{})}
	manager := operations.NewManager([]operations.Step{step}, testLogger())
	svc := NewOperationsService(manager, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	summary, started := svc.Trigger(ctx)
	require.True(t, started)

	// Cancelling the HTTP request context must not kill the run.
	cancel()
	close(step.release)
	waitForStatus(t, svc, summary.ID, operations.RunStatusCompleted)
}

func TestOperationsServiceGetUnknownRun(t *testing.T) {
	manager := operations.NewManager(nil, testLogger())
	svc := NewOperationsService(manager, testLogger())

	_, err := svc.Get("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.Empty(t, svc.List())
}

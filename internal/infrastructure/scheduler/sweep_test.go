package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/infrastructure/scheduler"
)

type mockSweepRunner struct {
	calls       atomic.Int32
	executeFunc func(ctx context.Context) error
}

func (m *mockSweepRunner) Execute(ctx context.Context, _ dto.ReconcileAllRequest) (dto.ReconciliationReportResponse, error) {
	m.calls.Add(1)
	if m.executeFunc != nil {
		return dto.ReconciliationReportResponse{}, m.executeFunc(ctx)
	}
	return dto.ReconciliationReportResponse{Summary: "0 applied"}, nil
}

func TestNewSweep_InvalidSpec(t *testing.T) {
	_, err := scheduler.NewSweep("every now and then", &mockSweepRunner{}, 0, nil)
	assert.Error(t, err)
}

func TestSweep_RunOnce(t *testing.T) {
	runner := &mockSweepRunner{}
	s, err := scheduler.NewSweep("@every 1h", runner, time.Second, nil)
	require.NoError(t, err)

	s.RunOnce()
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestSweep_SkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	runner := &mockSweepRunner{executeFunc: func(context.Context) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}}
	s, err := scheduler.NewSweep("@every 1h", runner, 0, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.RunOnce()
		close(done)
	}()
	<-started
	s.RunOnce()
	close(release)
	<-done

	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestSweep_StopCancelsInFlightRun(t *testing.T) {
	started := make(chan struct{})
	runner := &mockSweepRunner{executeFunc: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	s, err := scheduler.NewSweep("@every 1h", runner, 0, nil)
	require.NoError(t, err)
	s.Start()

	done := make(chan struct{})
	go func() {
		s.RunOnce()
		close(done)
	}()
	<-started
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not observe cancellation")
	}
}

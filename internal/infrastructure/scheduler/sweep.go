// Package scheduler runs the periodic reconciliation sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bibbank/leasing/internal/application/dto"
)

// SweepRunner is the bulk reconciliation entry point.
type SweepRunner interface {
	Execute(ctx context.Context, req dto.ReconcileAllRequest) (dto.ReconciliationReportResponse, error)
}

// Sweep triggers SweepRunner on a cron spec. Overlapping runs are skipped.
type Sweep struct {
	cron    *cron.Cron
	runner  SweepRunner
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewSweep parses spec (standard five-field or descriptors like "@every 1h").
func NewSweep(spec string, runner SweepRunner, timeout time.Duration, logger *slog.Logger) (*Sweep, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sweep{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		runner:  runner,
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		cancel()
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduling in the background.
func (s *Sweep) Start() {
	s.logger.Info("reconciliation sweep scheduled", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop cancels an in-flight sweep and waits for it to return.
func (s *Sweep) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// RunOnce performs one sweep unless another is still running.
func (s *Sweep) RunOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous reconciliation sweep still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.runner.Execute(ctx, dto.ReconcileAllRequest{})
	if err != nil {
		s.logger.Error("reconciliation sweep", "error", err, "summary", report.Summary)
		return
	}
	s.logger.Info("reconciliation sweep", "agreements", report.Agreements, "summary", report.Summary)
}

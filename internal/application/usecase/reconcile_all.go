package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/model"
)

// DefaultConcurrency bounds how many agreements a sweep reconciles at once.
const DefaultConcurrency = 8

// ReconcileAllUseCase sweeps every open agreement and every agreement with
// pending facts. Each agreement commits on its own.
type ReconcileAllUseCase struct {
	rc          *Reconciliation
	concurrency int
}

// NewReconcileAllUseCase wires dependencies.
func NewReconcileAllUseCase(rc *Reconciliation, concurrency int) *ReconcileAllUseCase {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &ReconcileAllUseCase{rc: rc, concurrency: concurrency}
}

// Execute reconciles agreements in parallel. A failure on one agreement is
// reported and never aborts the sweep. Cancelling ctx stops new agreements
// from starting; the partial report is returned with ctx's error.
func (uc *ReconcileAllUseCase) Execute(
	ctx context.Context,
	req dto.ReconcileAllRequest,
) (dto.ReconciliationReportResponse, error) {
	start := time.Now()
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = uc.rc.Now()
	}

	ids, err := uc.targets(ctx)
	if err != nil {
		return dto.ReconciliationReportResponse{}, err
	}

	var (
		mu     sync.Mutex
		report model.ReconciliationReport
		g      errgroup.Group
	)
	g.SetLimit(uc.concurrency)

	launched := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		launched++
		id := id
		g.Go(func() error {
			out, err := uc.rc.Reconcile(ctx, id, asOf)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				uc.rc.logger.Error("reconcile agreement", "agreement_id", id, "error", err)
				report.Fail(id, err.Error())
				return nil
			}
			report.Merge(out.Report)
			return nil
		})
	}
	_ = g.Wait()

	uc.rc.metrics.RecordReconciliation(ctx, "sweep", report.Applied, report.Skipped, report.Failed, time.Since(start))
	uc.rc.logger.Info("reconciliation sweep finished",
		"agreements", launched,
		"applied", report.Applied,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", time.Since(start),
	)

	resp := toReportResponse(report, launched)
	if err := ctx.Err(); err != nil {
		return resp, fmt.Errorf("reconcile all: %w", err)
	}
	return resp, nil
}

// targets is the sorted union of open agreements and agreements holding
// pending facts, so closed agreements still get their pending facts skipped.
func (uc *ReconcileAllUseCase) targets(ctx context.Context) ([]string, error) {
	reader := uc.rc.Reader()
	open, err := reader.Agreements.ListOpenIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open agreements: %w", err)
	}
	pending, err := reader.Payments.ListAgreementsWithPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agreements with pending payments: %w", err)
	}

	seen := make(map[string]struct{}, len(open)+len(pending))
	ids := make([]string, 0, len(open)+len(pending))
	for _, id := range append(open, pending...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

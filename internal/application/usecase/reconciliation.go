package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bibbank/leasing/internal/domain/event"
	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/port"
	"github.com/bibbank/leasing/internal/domain/service"
	"github.com/bibbank/leasing/pkg/events"
	"github.com/bibbank/leasing/pkg/observability"
)

// Retrier re-runs op while it fails with a retryable error.
type Retrier interface {
	Do(ctx context.Context, op func(ctx context.Context) error) error
}

type noRetry struct{}

func (noRetry) Do(ctx context.Context, op func(ctx context.Context) error) error { return op(ctx) }

// WriteFunc runs inside one agreement's unit of work. Events recorded on
// the collector are published only after the unit of work commits.
type WriteFunc func(ctx context.Context, repos port.Repositories, collected *events.EventCollector) error

// Reconciliation owns the per-agreement write path shared by every use case:
// lock, read, replay, persist, commit, then publish.
type Reconciliation struct {
	tx         port.TransactionManager
	publisher  port.EventPublisher
	reconciler *service.Reconciler
	retrier    Retrier
	metrics    *observability.EngineMetrics
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Reconciliation.
type Option func(*Reconciliation)

// WithRetrier retries conflicting writes.
func WithRetrier(r Retrier) Option {
	return func(rc *Reconciliation) {
		if r != nil {
			rc.retrier = r
		}
	}
}

// WithMetrics records engine metrics.
func WithMetrics(m *observability.EngineMetrics) Option {
	return func(rc *Reconciliation) { rc.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(rc *Reconciliation) {
		if l != nil {
			rc.logger = l
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(rc *Reconciliation) {
		if now != nil {
			rc.now = now
		}
	}
}

// NewReconciliation wires dependencies.
func NewReconciliation(
	tx port.TransactionManager,
	publisher port.EventPublisher,
	opts ...Option,
) *Reconciliation {
	rc := &Reconciliation{
		tx:         tx,
		publisher:  publisher,
		reconciler: service.NewReconciler(service.NewPaymentMatcher()),
		retrier:    noRetry{},
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Reader exposes unlocked read access.
func (rc *Reconciliation) Reader() port.Repositories { return rc.tx.Reader() }

// Now returns the current time from the configured clock.
func (rc *Reconciliation) Now() time.Time { return rc.now() }

// Write runs fn under the agreement's lock. Each retry starts from a fresh
// collector so events from an aborted attempt are never published.
func (rc *Reconciliation) Write(ctx context.Context, agreementID string, fn WriteFunc) error {
	var committed []event.DomainEvent
	err := rc.retrier.Do(ctx, func(ctx context.Context) error {
		var collected events.EventCollector
		err := rc.tx.WithinAgreement(ctx, agreementID, func(ctx context.Context, repos port.Repositories) error {
			return fn(ctx, repos, &collected)
		})
		if err != nil {
			if model.IsConflict(err) {
				rc.metrics.RecordConflict(ctx)
				rc.logger.Warn("agreement write conflict", "agreement_id", agreementID, "error", err)
			}
			return err
		}
		committed = collected.ClearEvents()
		return nil
	})
	if err != nil {
		return err
	}
	rc.publish(ctx, committed)
	return nil
}

// publish never fails the caller: the write has already committed.
func (rc *Reconciliation) publish(ctx context.Context, evts []event.DomainEvent) {
	if len(evts) == 0 || rc.publisher == nil {
		return
	}
	if err := rc.publisher.Publish(context.WithoutCancel(ctx), evts...); err != nil {
		rc.logger.Error("publish events", "count", len(evts), "error", err)
	}
}

// Reconcile replays one agreement as of asOf. A zero asOf means today.
func (rc *Reconciliation) Reconcile(ctx context.Context, agreementID string, asOf time.Time) (service.ReplayOutcome, error) {
	if agreementID == "" {
		return service.ReplayOutcome{}, &model.UnknownAgreementError{}
	}
	start := time.Now()
	var outcome service.ReplayOutcome
	err := rc.Write(ctx, agreementID, func(ctx context.Context, repos port.Repositories, collected *events.EventCollector) error {
		out, err := rc.replay(ctx, repos, agreementID, asOf, collected)
		outcome = out
		return err
	})
	if err != nil {
		rc.metrics.RecordReconciliation(ctx, "agreement", 0, 0, 1, time.Since(start))
		return service.ReplayOutcome{}, err
	}
	r := outcome.Report
	rc.metrics.RecordReconciliation(ctx, "agreement", r.Applied, r.Skipped, r.Failed, time.Since(start))
	rc.logger.Debug("agreement reconciled",
		"agreement_id", agreementID,
		"applied", r.Applied,
		"skipped", r.Skipped,
		"failed", r.Failed,
		"changed", outcome.Changed(),
	)
	return outcome, nil
}

// replay loads the agreement's full state, replays it and persists only
// what changed. Must run inside the agreement's unit of work.
func (rc *Reconciliation) replay(
	ctx context.Context,
	repos port.Repositories,
	agreementID string,
	asOf time.Time,
	collected *events.EventCollector,
) (service.ReplayOutcome, error) {
	now := rc.now()
	if asOf.IsZero() {
		asOf = now
	}
	asOf = model.Date(asOf)

	agreement, err := findAgreement(ctx, repos, agreementID)
	if err != nil {
		return service.ReplayOutcome{}, err
	}
	entries, err := repos.Schedule.FindByAgreement(ctx, agreementID)
	if err != nil {
		return service.ReplayOutcome{}, fmt.Errorf("find schedule: %w", err)
	}
	facts, err := repos.Payments.FindByAgreement(ctx, agreementID)
	if err != nil {
		return service.ReplayOutcome{}, fmt.Errorf("find payments: %w", err)
	}
	var stored *model.RemainingBalance
	balance, err := repos.Balances.FindByAgreement(ctx, agreementID)
	switch {
	case err == nil:
		stored = &balance
	case !errors.Is(err, model.ErrNotFound):
		return service.ReplayOutcome{}, fmt.Errorf("find balance: %w", err)
	}

	out := rc.reconciler.Replay(service.ReplayInput{
		Agreement: agreement,
		Entries:   entries,
		Facts:     facts,
		Balance:   stored,
		AsOf:      asOf,
		Now:       now,
	})
	if !out.Changed() {
		return out, nil
	}

	if len(out.ChangedEntries) > 0 {
		if err := repos.Schedule.Update(ctx, out.ChangedEntries...); err != nil {
			return service.ReplayOutcome{}, fmt.Errorf("update schedule: %w", err)
		}
	}
	if len(out.ChangedFacts) > 0 {
		if err := repos.Payments.Update(ctx, out.ChangedFacts...); err != nil {
			return service.ReplayOutcome{}, fmt.Errorf("update payments: %w", err)
		}
	}
	if out.BalanceChanged {
		if err := repos.Balances.Save(ctx, out.Balance); err != nil {
			return service.ReplayOutcome{}, fmt.Errorf("save balance: %w", err)
		}
	}

	collected.Record(event.NewAgreementReconciled(
		agreementID,
		out.Report.Applied, out.Report.Skipped, out.Report.Failed,
		out.Balance.AmountPaid(), out.Balance.RemainingAmount(),
		asOf, now,
	))
	return out, nil
}

func findAgreement(ctx context.Context, repos port.Repositories, id string) (model.Agreement, error) {
	agreement, err := repos.Agreements.FindByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.Agreement{}, &model.UnknownAgreementError{AgreementID: id}
	}
	if err != nil {
		return model.Agreement{}, fmt.Errorf("find agreement: %w", err)
	}
	return agreement, nil
}

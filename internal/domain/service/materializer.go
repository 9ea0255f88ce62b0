package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/port"
)

// ---------------------------------------------------------------------------
// ScheduleMaterializer – turns an agreement's plan into stored entries
// ---------------------------------------------------------------------------

// ScheduleMaterializer creates an agreement's schedule entries and initial
// balance exactly once.
type ScheduleMaterializer struct{}

// NewScheduleMaterializer returns a new materializer.
func NewScheduleMaterializer() *ScheduleMaterializer {
	return &ScheduleMaterializer{}
}

// Plan computes the entries and opening balance without touching storage.
func (m *ScheduleMaterializer) Plan(agreement model.Agreement, now time.Time) ([]model.ScheduleEntry, model.RemainingBalance, error) {
	plan, err := agreement.Installments()
	if err != nil {
		return nil, model.RemainingBalance{}, err
	}
	entries := make([]model.ScheduleEntry, 0, len(plan))
	for _, inst := range plan {
		entries = append(entries, model.NewScheduleEntry(agreement.ID(), inst, now))
	}
	return entries, model.NewRemainingBalance(agreement.ID(), agreement.TotalAmount(), now), nil
}

// Materialize persists the plan. It returns model.ErrDuplicateMaterialization
// when the agreement already has entries; callers treat that as a no-op.
// Must run inside the agreement's unit of work.
func (m *ScheduleMaterializer) Materialize(ctx context.Context, repos port.Repositories, agreement model.Agreement, now time.Time) ([]model.ScheduleEntry, error) {
	exists, err := repos.Schedule.Exists(ctx, agreement.ID())
	if err != nil {
		return nil, fmt.Errorf("check schedule: %w", err)
	}
	if exists {
		return nil, model.ErrDuplicateMaterialization
	}

	entries, balance, err := m.Plan(agreement, now)
	if err != nil {
		return nil, err
	}
	if err := repos.Schedule.InsertBatch(ctx, entries); err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}
	if err := repos.Balances.Save(ctx, balance); err != nil {
		return nil, fmt.Errorf("save balance: %w", err)
	}
	return entries, nil
}

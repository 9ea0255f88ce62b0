package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/model"
	"github.com/bibbank/leasing/internal/domain/port"
	"github.com/bibbank/leasing/internal/domain/valueobject"
	"github.com/bibbank/leasing/pkg/events"
)

// ChangeAgreementStatusUseCase moves an agreement through its lifecycle.
// Closing or cancelling terminates every outstanding entry without implying
// payment.
type ChangeAgreementStatusUseCase struct {
	rc *Reconciliation
}

// NewChangeAgreementStatusUseCase wires dependencies.
func NewChangeAgreementStatusUseCase(rc *Reconciliation) *ChangeAgreementStatusUseCase {
	return &ChangeAgreementStatusUseCase{rc: rc}
}

// Execute applies the transition. Supported targets are active (from draft),
// closed and cancelled.
func (uc *ChangeAgreementStatusUseCase) Execute(
	ctx context.Context,
	req dto.ChangeAgreementStatusRequest,
) (dto.AgreementResponse, error) {
	if req.AgreementID == "" {
		return dto.AgreementResponse{}, &model.UnknownAgreementError{}
	}
	target, err := valueobject.NewAgreementStatus(req.Status)
	if err != nil {
		return dto.AgreementResponse{}, &model.InvalidInputError{Field: "status", Reason: err.Error()}
	}

	var resp dto.AgreementResponse
	err = uc.rc.Write(ctx, req.AgreementID, func(ctx context.Context, repos port.Repositories, collected *events.EventCollector) error {
		agreement, err := findAgreement(ctx, repos, req.AgreementID)
		if err != nil {
			return err
		}
		entries, err := repos.Schedule.FindByAgreement(ctx, req.AgreementID)
		if err != nil {
			return fmt.Errorf("find schedule: %w", err)
		}

		now := uc.rc.Now()
		var next model.Agreement
		switch {
		case target.Equal(valueobject.AgreementStatusActive):
			next, err = agreement.Activate(now)
		case target.IsTerminal():
			next, err = uc.terminate(ctx, repos, agreement, entries, target, now)
		default:
			err = valueobject.ErrInvalidStatusTransition
		}
		if err != nil {
			return fmt.Errorf("change status to %s: %w", target, err)
		}

		if err := repos.Agreements.Save(ctx, next); err != nil {
			return fmt.Errorf("save agreement: %w", err)
		}
		collected.Record(next.DomainEvents()...)

		if _, err := uc.rc.replay(ctx, repos, next.ID(), time.Time{}, collected); err != nil {
			return err
		}
		resp = toAgreementResponse(next.ClearEvents(), len(entries), false)
		return nil
	})
	if err != nil {
		return dto.AgreementResponse{}, err
	}

	uc.rc.logger.Info("agreement status changed",
		"agreement_id", resp.ID,
		"status", resp.Status,
	)
	return resp, nil
}

func (uc *ChangeAgreementStatusUseCase) terminate(
	ctx context.Context,
	repos port.Repositories,
	agreement model.Agreement,
	entries []model.ScheduleEntry,
	target valueobject.AgreementStatus,
	now time.Time,
) (model.Agreement, error) {
	var cancelled []model.ScheduleEntry
	for _, e := range entries {
		if next, changed := e.Terminate(now); changed {
			cancelled = append(cancelled, next)
		}
	}
	next, err := agreement.Close(target, len(cancelled), now)
	if err != nil {
		return model.Agreement{}, err
	}
	if len(cancelled) > 0 {
		if err := repos.Schedule.Update(ctx, cancelled...); err != nil {
			return model.Agreement{}, fmt.Errorf("cancel schedule entries: %w", err)
		}
	}
	return next, nil
}

package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/event"
	"github.com/bibbank/leasing/internal/domain/port"
	"github.com/bibbank/leasing/pkg/events"
)

// DeleteAgreementUseCase removes an agreement and every record that depends
// on it in a single unit of work.
type DeleteAgreementUseCase struct {
	rc *Reconciliation
}

// NewDeleteAgreementUseCase wires dependencies.
func NewDeleteAgreementUseCase(rc *Reconciliation) *DeleteAgreementUseCase {
	return &DeleteAgreementUseCase{rc: rc}
}

// Execute deletes schedule entries, payment facts and the balance before the
// agreement itself. Any failure rolls the whole cascade back.
func (uc *DeleteAgreementUseCase) Execute(
	ctx context.Context,
	req dto.DeleteAgreementRequest,
) (dto.DeleteAgreementResponse, error) {
	var resp dto.DeleteAgreementResponse
	err := uc.rc.Write(ctx, req.AgreementID, func(ctx context.Context, repos port.Repositories, collected *events.EventCollector) error {
		if _, err := findAgreement(ctx, repos, req.AgreementID); err != nil {
			return err
		}

		entries, err := repos.Schedule.DeleteByAgreement(ctx, req.AgreementID)
		if err != nil {
			return fmt.Errorf("delete schedule: %w", err)
		}
		facts, err := repos.Payments.DeleteByAgreement(ctx, req.AgreementID)
		if err != nil {
			return fmt.Errorf("delete payments: %w", err)
		}
		if err := repos.Balances.DeleteByAgreement(ctx, req.AgreementID); err != nil {
			return fmt.Errorf("delete balance: %w", err)
		}
		if err := repos.Agreements.Delete(ctx, req.AgreementID); err != nil {
			return fmt.Errorf("delete agreement: %w", err)
		}

		collected.Record(event.NewAgreementDeleted(req.AgreementID, entries, facts, uc.rc.Now()))
		resp = dto.DeleteAgreementResponse{
			AgreementID:     req.AgreementID,
			ScheduleEntries: entries,
			PaymentFacts:    facts,
		}
		return nil
	})
	if err != nil {
		return dto.DeleteAgreementResponse{}, err
	}

	uc.rc.logger.Info("agreement deleted",
		"agreement_id", resp.AgreementID,
		"schedule_entries", resp.ScheduleEntries,
		"payment_facts", resp.PaymentFacts,
	)
	return resp, nil
}

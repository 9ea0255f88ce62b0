package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/model"
)

// GetScheduleUseCase returns an agreement's installments in order.
type GetScheduleUseCase struct {
	rc *Reconciliation
}

// NewGetScheduleUseCase wires dependencies.
func NewGetScheduleUseCase(rc *Reconciliation) *GetScheduleUseCase {
	return &GetScheduleUseCase{rc: rc}
}

// Execute reads the schedule without taking the agreement's lock.
func (uc *GetScheduleUseCase) Execute(
	ctx context.Context,
	req dto.GetScheduleRequest,
) (dto.ScheduleResponse, error) {
	if req.AgreementID == "" {
		return dto.ScheduleResponse{}, &model.UnknownAgreementError{}
	}
	reader := uc.rc.Reader()
	if _, err := findAgreement(ctx, reader, req.AgreementID); err != nil {
		return dto.ScheduleResponse{}, err
	}
	entries, err := reader.Schedule.FindByAgreement(ctx, req.AgreementID)
	if err != nil {
		return dto.ScheduleResponse{}, fmt.Errorf("find schedule: %w", err)
	}
	return dto.ScheduleResponse{
		AgreementID: req.AgreementID,
		Entries:     toEntryResponses(entries),
	}, nil
}

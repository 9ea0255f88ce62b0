package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/model"
)

// GetBalanceUseCase returns the cached remaining balance of an agreement.
type GetBalanceUseCase struct {
	rc *Reconciliation
}

// NewGetBalanceUseCase wires dependencies.
func NewGetBalanceUseCase(rc *Reconciliation) *GetBalanceUseCase {
	return &GetBalanceUseCase{rc: rc}
}

// Execute reads the balance. An agreement without a stored balance reports
// its full total as remaining.
func (uc *GetBalanceUseCase) Execute(
	ctx context.Context,
	req dto.GetBalanceRequest,
) (dto.BalanceResponse, error) {
	if req.AgreementID == "" {
		return dto.BalanceResponse{}, &model.UnknownAgreementError{}
	}
	reader := uc.rc.Reader()
	agreement, err := findAgreement(ctx, reader, req.AgreementID)
	if err != nil {
		return dto.BalanceResponse{}, err
	}
	balance, err := reader.Balances.FindByAgreement(ctx, req.AgreementID)
	if errors.Is(err, model.ErrNotFound) {
		balance = model.NewRemainingBalance(agreement.ID(), agreement.TotalAmount(), agreement.CreatedAt())
	} else if err != nil {
		return dto.BalanceResponse{}, fmt.Errorf("find balance: %w", err)
	}
	return toBalanceResponse(balance), nil
}

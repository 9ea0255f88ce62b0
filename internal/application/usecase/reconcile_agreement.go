package usecase

import (
	"context"

	"github.com/bibbank/leasing/internal/application/dto"
)

// ReconcileAgreementUseCase re-evaluates one agreement's schedule against
// all of its payment facts.
type ReconcileAgreementUseCase struct {
	rc *Reconciliation
}

// NewReconcileAgreementUseCase wires dependencies.
func NewReconcileAgreementUseCase(rc *Reconciliation) *ReconcileAgreementUseCase {
	return &ReconcileAgreementUseCase{rc: rc}
}

// Execute reconciles the agreement. Running it again with no new facts and
// the same as-of date writes nothing.
func (uc *ReconcileAgreementUseCase) Execute(
	ctx context.Context,
	req dto.ReconcileRequest,
) (dto.ReconciliationReportResponse, error) {
	out, err := uc.rc.Reconcile(ctx, req.AgreementID, req.AsOf)
	if err != nil {
		return dto.ReconciliationReportResponse{}, err
	}
	return toReportResponse(out.Report, 1), nil
}

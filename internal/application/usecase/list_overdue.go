package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/model"
)

const defaultOverdueLimit = 100

// ListOverdueUseCase projects unpaid entries past their due date for the
// reminder collaborator.
type ListOverdueUseCase struct {
	rc *Reconciliation
}

// NewListOverdueUseCase wires dependencies.
func NewListOverdueUseCase(rc *Reconciliation) *ListOverdueUseCase {
	return &ListOverdueUseCase{rc: rc}
}

// Execute lists outstanding entries due before req.AsOf, oldest first.
func (uc *ListOverdueUseCase) Execute(
	ctx context.Context,
	req dto.ListOverdueRequest,
) (dto.OverdueResponse, error) {
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = uc.rc.Now()
	}
	asOf = model.Date(asOf)
	limit := req.Limit
	if limit <= 0 {
		limit = defaultOverdueLimit
	}

	entries, err := uc.rc.Reader().Schedule.ListOverdue(ctx, asOf, limit)
	if err != nil {
		return dto.OverdueResponse{}, fmt.Errorf("list overdue: %w", err)
	}
	return dto.OverdueResponse{AsOf: asOf, Entries: toEntryResponses(entries)}, nil
}

package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/leasing/internal/application/dto"
	"github.com/bibbank/leasing/internal/domain/event"
	"github.com/bibbank/leasing/internal/domain/port"
	"github.com/bibbank/leasing/pkg/events"
)

// RecordReminderUseCase bumps an entry's reminder bookkeeping after the
// notification collaborator has sent one.
type RecordReminderUseCase struct {
	rc *Reconciliation
}

// NewRecordReminderUseCase wires dependencies.
func NewRecordReminderUseCase(rc *Reconciliation) *RecordReminderUseCase {
	return &RecordReminderUseCase{rc: rc}
}

// Execute increments the reminder count. Only outstanding entries accept
// reminders.
func (uc *RecordReminderUseCase) Execute(
	ctx context.Context,
	req dto.RecordReminderRequest,
) (dto.ScheduleEntryResponse, error) {
	located, err := uc.rc.Reader().Schedule.FindByID(ctx, req.ScheduleEntryID)
	if err != nil {
		return dto.ScheduleEntryResponse{}, fmt.Errorf("find schedule entry: %w", err)
	}
	at := req.At
	if at.IsZero() {
		at = uc.rc.Now()
	}

	var resp dto.ScheduleEntryResponse
	err = uc.rc.Write(ctx, located.AgreementID(), func(ctx context.Context, repos port.Repositories, collected *events.EventCollector) error {
		entry, err := repos.Schedule.FindByID(ctx, req.ScheduleEntryID)
		if err != nil {
			return fmt.Errorf("find schedule entry: %w", err)
		}
		next, err := entry.RecordReminder(at)
		if err != nil {
			return fmt.Errorf("record reminder: %w", err)
		}
		if err := repos.Schedule.Update(ctx, next); err != nil {
			return fmt.Errorf("update schedule entry: %w", err)
		}
		collected.Record(event.NewReminderRecorded(next.AgreementID(), next.ID(), next.ReminderCount(), uc.rc.Now()))
		resp = toEntryResponse(next)
		return nil
	})
	if err != nil {
		return dto.ScheduleEntryResponse{}, err
	}
	return resp, nil
}

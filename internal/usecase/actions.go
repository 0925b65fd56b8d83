package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/logger"

	"github.com/google/uuid"
)

// ActionService applies recipient actions to signals. ACK, SNOOZE and
// DISMISS are plain lifecycle transitions; EXECUTE is delegated to the
// execution coordinator.
type ActionService struct {
	signals     drepo.SignalStore
	audit       drepo.AuditTrail
	coordinator *ExecutionCoordinator
	logger      *logger.Logger

	now func() time.Time
}

// NewActionService creates the service.
func NewActionService(
	signals drepo.SignalStore,
	audit drepo.AuditTrail,
	coordinator *ExecutionCoordinator,
	lgr *logger.Logger,
) *ActionService {
	return &ActionService{
		signals:     signals,
		audit:       audit,
		coordinator: coordinator,
		logger:      lgr,
		now:         time.Now,
	}
}

// SetClock overrides the service's clock. Tests only.
func (a *ActionService) SetClock(now func() time.Time) { a.now = now }

// Apply runs an action against a signal and returns the updated record. The
// optional note lands on the audit record. Actions against terminal signals
// return ErrAlreadyHandled.
func (a *ActionService) Apply(ctx context.Context, signalID string, action models.Action, note string) (*models.Signal, error) {
	if action == models.ActionExecute {
		return a.coordinator.Execute(ctx, signalID)
	}

	sig, err := a.signals.Get(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if sig.Status.IsTerminal() {
		return nil, drepo.ErrAlreadyHandled
	}

	next, err := models.Transition(sig.Status, action)
	if err != nil {
		return nil, err
	}

	updated, err := a.signals.UpdateIf(ctx, signalID,
		[]models.Status{sig.Status},
		func(cur *models.Signal) {
			cur.Status = next
		})
	if errors.Is(err, drepo.ErrConflict) {
		return nil, drepo.ErrAlreadyHandled
	}
	if err != nil {
		return nil, err
	}

	if err := a.audit.Append(ctx, &models.SignalAction{
		ID:        uuid.NewString(),
		SignalID:  updated.ID,
		Action:    action,
		Note:      note,
		CreatedAt: a.now(),
	}); err != nil {
		a.logger.Error("audit append failed", logger.String("signal_id", updated.ID), logger.Error(err))
	}

	a.logger.Info("action applied",
		logger.String("signal_id", updated.ID),
		logger.String("action", string(action)),
		logger.String("status", string(updated.Status)),
	)
	return updated, nil
}

// History returns the signal's full audit trail, oldest first.
func (a *ActionService) History(ctx context.Context, signalID string) ([]*models.SignalAction, error) {
	if _, err := a.signals.Get(ctx, signalID); err != nil {
		return nil, err
	}
	acts, err := a.audit.ListBySignal(ctx, signalID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return acts, nil
}

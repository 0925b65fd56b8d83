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

// ExpirySweeper retires signals that sat unhandled past their TTL. EXPIRED
// is terminal and releases the cash reservation.
type ExpirySweeper struct {
	signals drepo.SignalStore
	audit   drepo.AuditTrail
	metrics drepo.Metrics
	logger  *logger.Logger

	ttl time.Duration
	now func() time.Time
}

// NewExpirySweeper creates the sweeper.
func NewExpirySweeper(
	signals drepo.SignalStore,
	audit drepo.AuditTrail,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	ttl time.Duration,
) *ExpirySweeper {
	return &ExpirySweeper{
		signals: signals,
		audit:   audit,
		metrics: metrics,
		logger:  lgr,
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock overrides the sweeper's clock. Tests only.
func (e *ExpirySweeper) SetClock(now func() time.Time) { e.now = now }

// Sweep expires every PENDING/SNOOZED signal older than the TTL. Safe to
// run concurrently with user actions: the conditional update loses cleanly
// to a transition that got there first.
func (e *ExpirySweeper) Sweep(ctx context.Context) error {
	now := e.now()
	stale, err := e.signals.ListStale(ctx, now.Add(-e.ttl))
	if err != nil {
		return fmt.Errorf("list stale: %w", err)
	}

	for _, sig := range stale {
		_, err := e.signals.UpdateIf(ctx, sig.ID,
			[]models.Status{models.StatusPending, models.StatusSnoozed},
			func(cur *models.Signal) {
				cur.Status = models.StatusExpired
			})
		if errors.Is(err, drepo.ErrConflict) {
			continue
		}
		if err != nil {
			e.logger.Error("expire failed",
				logger.String("signal_id", sig.ID),
				logger.Error(err),
			)
			continue
		}

		if err := e.audit.Append(ctx, &models.SignalAction{
			ID:        uuid.NewString(),
			SignalID:  sig.ID,
			Action:    models.ActionExpire,
			Note:      fmt.Sprintf("unhandled for %s", e.ttl),
			CreatedAt: now,
		}); err != nil {
			e.logger.Error("audit append failed", logger.String("signal_id", sig.ID), logger.Error(err))
		}

		e.metrics.RecordExpiry()
		e.logger.Info("signal expired",
			logger.String("signal_id", sig.ID),
			logger.String("symbol", sig.Symbol),
			logger.String("portfolio", sig.PortfolioID),
		)
	}
	return nil
}

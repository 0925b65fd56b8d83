package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/jobs"
	"SignalDesk/pkg/logger"
)

// NotificationScheduler pushes due signals to their recipients. A signal is
// due when it was never notified, or when its last notification is older
// than the resend interval. Each pass starts by sweeping expired signals so
// a stale one is never re-notified.
type NotificationScheduler struct {
	signals    drepo.SignalStore
	portfolios drepo.PortfolioStore
	channel    drepo.NotificationChannel
	sweeper    *ExpirySweeper
	metrics    drepo.Metrics
	logger     *logger.Logger

	resendInterval time.Duration
	paceDelay      time.Duration
	now            func() time.Time
}

// NewNotificationScheduler creates the scheduler.
func NewNotificationScheduler(
	signals drepo.SignalStore,
	portfolios drepo.PortfolioStore,
	channel drepo.NotificationChannel,
	sweeper *ExpirySweeper,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	resendInterval time.Duration,
	paceDelay time.Duration,
) *NotificationScheduler {
	return &NotificationScheduler{
		signals:        signals,
		portfolios:     portfolios,
		channel:        channel,
		sweeper:        sweeper,
		metrics:        metrics,
		logger:         lgr,
		resendInterval: resendInterval,
		paceDelay:      paceDelay,
		now:            time.Now,
	}
}

// SetClock overrides the scheduler's clock. Tests only.
func (s *NotificationScheduler) SetClock(now func() time.Time) { s.now = now }

// RunPass delivers every due signal once. A delivery failure is logged and
// skipped; one unreachable recipient must not starve the rest of the pass.
func (s *NotificationScheduler) RunPass(ctx context.Context) error {
	start := time.Now()
	defer func() {
		s.metrics.RecordLatency("notify_pass", time.Since(start).Seconds())
	}()

	if err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.Error("expiry sweep failed", logger.Error(err))
	}

	now := s.now()
	due, err := s.signals.ListDue(ctx, now.Add(-s.resendInterval))
	if err != nil {
		return fmt.Errorf("list due: %w", err)
	}

	for i, sig := range due {
		if i > 0 {
			jobs.Pace(ctx, s.paceDelay)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.deliver(ctx, sig, now); err != nil {
			s.metrics.RecordNotification("error")
			s.logger.Error("notification failed",
				logger.String("signal_id", sig.ID),
				logger.String("symbol", sig.Symbol),
				logger.Error(err),
			)
			continue
		}
		s.metrics.RecordNotification("ok")
	}
	return nil
}

func (s *NotificationScheduler) deliver(ctx context.Context, sig *models.Signal, now time.Time) error {
	recipient, err := s.portfolios.Recipient(ctx, sig.PortfolioID)
	if err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	live, err := s.portfolios.HasGateway(ctx, sig.PortfolioID)
	if err != nil {
		return fmt.Errorf("gateway flag: %w", err)
	}

	if err := s.channel.Deliver(ctx, recipient, renderSignal(sig, live)); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}

	// Delivered. Record the send, and fold SNOOZED back to PENDING so the
	// snooze only defers a single cycle.
	ts := now
	_, err = s.signals.UpdateIf(ctx, sig.ID,
		[]models.Status{models.StatusPending, models.StatusSnoozed},
		func(cur *models.Signal) {
			cur.LastNotifiedAt = &ts
			cur.NotifyCount++
			cur.Status = models.StatusPending
		})
	if errors.Is(err, drepo.ErrConflict) {
		// acted on between listing and bookkeeping; the send stands
		s.logger.Debug("signal moved during delivery", logger.String("signal_id", sig.ID))
		return nil
	}
	return err
}

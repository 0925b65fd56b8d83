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

	"github.com/google/uuid"
)

// ExecutionCoordinator drives EXECUTE requests through the gateway and
// reconciles open orders against the broker's authoritative state.
type ExecutionCoordinator struct {
	signals    drepo.SignalStore
	audit      drepo.AuditTrail
	ledger     *CapitalLedger
	portfolios drepo.PortfolioStore
	gateway    drepo.ExecutionGateway
	channel    drepo.NotificationChannel
	metrics    drepo.Metrics
	logger     *logger.Logger

	paceDelay   time.Duration
	verifyAfter time.Duration
	now         func() time.Time
}

// NewExecutionCoordinator creates the coordinator.
func NewExecutionCoordinator(
	signals drepo.SignalStore,
	audit drepo.AuditTrail,
	ledger *CapitalLedger,
	portfolios drepo.PortfolioStore,
	gateway drepo.ExecutionGateway,
	channel drepo.NotificationChannel,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	paceDelay time.Duration,
	verifyAfter time.Duration,
) *ExecutionCoordinator {
	return &ExecutionCoordinator{
		signals:     signals,
		audit:       audit,
		ledger:      ledger,
		portfolios:  portfolios,
		gateway:     gateway,
		channel:     channel,
		metrics:     metrics,
		logger:      lgr,
		paceDelay:   paceDelay,
		verifyAfter: verifyAfter,
		now:         time.Now,
	}
}

// SetClock overrides the coordinator's clock. Tests only.
func (c *ExecutionCoordinator) SetClock(now func() time.Time) { c.now = now }

// Execute places a signal's order with the gateway. The PLACING claim is an
// atomic conditional update, so a doubled button press produces exactly one
// broker order; the loser gets ErrAlreadyHandled. On gateway failure the
// signal rolls back to PENDING with its order link cleared and is
// re-notified immediately.
func (c *ExecutionCoordinator) Execute(ctx context.Context, signalID string) (*models.Signal, error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordLatency("execute", time.Since(start).Seconds())
	}()

	sig, err := c.signals.Get(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if sig.Status.IsTerminal() || sig.Status == models.StatusPlacing {
		return nil, drepo.ErrAlreadyHandled
	}

	live, err := c.portfolios.HasGateway(ctx, sig.PortfolioID)
	if err != nil {
		return nil, fmt.Errorf("gateway flag: %w", err)
	}
	if !live {
		return nil, drepo.ErrNoGateway
	}

	claimed, err := c.signals.UpdateIf(ctx, signalID,
		[]models.Status{models.StatusPending, models.StatusSnoozed, models.StatusAcked},
		func(cur *models.Signal) {
			cur.Status = models.StatusPlacing
		})
	if errors.Is(err, drepo.ErrConflict) {
		return nil, drepo.ErrAlreadyHandled
	}
	if err != nil {
		return nil, err
	}

	// Edit the outstanding delivery so the buttons die while the order is
	// in flight. Best effort; the claim already protects against doubles.
	if recipient, rerr := c.portfolios.Recipient(ctx, claimed.PortfolioID); rerr == nil {
		if uerr := c.channel.Update(ctx, recipient, renderPlacing(claimed)); uerr != nil {
			c.logger.Warn("delivery edit failed", logger.String("signal_id", claimed.ID), logger.Error(uerr))
		}
	}

	ack, err := c.gateway.PlaceOrder(ctx, models.OrderForTrigger(claimed))
	if err != nil {
		c.metrics.RecordOrderPlaced("error")
		rolled := c.rollback(ctx, claimed.ID, fmt.Sprintf("placement failed: %v", err), "place_failed")
		return rolled, fmt.Errorf("place order: %w", err)
	}
	if ack.State == models.BrokerRejected || ack.State == models.BrokerCancelled {
		c.metrics.RecordOrderPlaced("rejected")
		rolled := c.rollback(ctx, claimed.ID, "order rejected at placement", "rejected")
		return rolled, fmt.Errorf("order rejected by broker")
	}

	executed, err := c.signals.UpdateIf(ctx, claimed.ID,
		[]models.Status{models.StatusPlacing},
		func(cur *models.Signal) {
			cur.Status = models.StatusExecuted
			cur.OrderID = ack.OrderID
			cur.OrderState = models.OrderStatePending
		})
	if err != nil {
		return nil, fmt.Errorf("record placement: %w", err)
	}

	if err := c.audit.Append(ctx, &models.SignalAction{
		ID:        uuid.NewString(),
		SignalID:  executed.ID,
		Action:    models.ActionExecute,
		Note:      fmt.Sprintf("order %s placed", ack.OrderID),
		CreatedAt: c.now(),
	}); err != nil {
		c.logger.Error("audit append failed", logger.String("signal_id", executed.ID), logger.Error(err))
	}

	c.metrics.RecordOrderPlaced("ok")
	c.logger.Info("order placed",
		logger.String("signal_id", executed.ID),
		logger.String("order_id", ack.OrderID),
		logger.String("symbol", executed.Symbol),
	)
	return executed, nil
}

// rollback returns a signal to PENDING after a broker failure: order link
// cleared, LastNotifiedAt reset so the next scheduler pass re-delivers with
// fresh buttons right away.
func (c *ExecutionCoordinator) rollback(ctx context.Context, signalID, note, reason string) *models.Signal {
	rolled, err := c.signals.UpdateIf(ctx, signalID,
		append(append([]models.Status{}, models.ReservingStatuses...), models.StatusExecuted),
		func(cur *models.Signal) {
			cur.Status = models.StatusPending
			cur.ClearOrderLink()
			cur.LastNotifiedAt = nil
		})
	if err != nil {
		c.logger.Error("rollback failed", logger.String("signal_id", signalID), logger.Error(err))
		return nil
	}

	if err := c.audit.Append(ctx, &models.SignalAction{
		ID:        uuid.NewString(),
		SignalID:  signalID,
		Action:    models.ActionRollback,
		Note:      note,
		CreatedAt: c.now(),
	}); err != nil {
		c.logger.Error("audit append failed", logger.String("signal_id", signalID), logger.Error(err))
	}
	c.metrics.RecordRollback(reason)

	// Push the rolled-back signal out immediately rather than waiting for
	// the next scheduler pass.
	if recipient, rerr := c.portfolios.Recipient(ctx, rolled.PortfolioID); rerr == nil {
		live, _ := c.portfolios.HasGateway(ctx, rolled.PortfolioID)
		if derr := c.channel.Deliver(ctx, recipient, renderSignal(rolled, live)); derr != nil {
			c.logger.Error("rollback re-delivery failed", logger.String("signal_id", rolled.ID), logger.Error(derr))
		}
	}

	c.logger.Warn("signal rolled back",
		logger.String("signal_id", signalID),
		logger.String("reason", reason),
	)
	return rolled
}

// Reconcile polls the gateway for every open order link. Fills hit the
// capital ledger exactly once; rejections and cancellations roll the signal
// back to PENDING.
func (c *ExecutionCoordinator) Reconcile(ctx context.Context) error {
	open, err := c.signals.ListOpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("list open orders: %w", err)
	}

	for i, sig := range open {
		if i > 0 {
			jobs.Pace(ctx, c.paceDelay)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		st, err := c.gateway.OrderStatus(ctx, sig.OrderID)
		if err != nil {
			c.logger.Error("order status failed",
				logger.String("signal_id", sig.ID),
				logger.String("order_id", sig.OrderID),
				logger.Error(err),
			)
			continue
		}

		switch st.State {
		case models.BrokerFilled:
			c.settleFill(ctx, sig, st)
		case models.BrokerRejected, models.BrokerCancelled:
			note := fmt.Sprintf("order %s %s", sig.OrderID, st.State)
			if st.Message != "" {
				note += ": " + st.Message
			}
			c.rollback(ctx, sig.ID, note, string(st.State))
		}
	}
	return nil
}

func (c *ExecutionCoordinator) settleFill(ctx context.Context, sig *models.Signal, st models.OrderStatus) {
	qty := st.FilledQuantity
	if qty <= 0 {
		qty = sig.Quantity
	}

	settled, err := c.signals.UpdateIf(ctx, sig.ID,
		[]models.Status{models.StatusPlacing, models.StatusExecuted},
		func(cur *models.Signal) {
			cur.Status = models.StatusExecuted
			cur.OrderState = models.OrderStateFilled
			if qty != cur.Quantity {
				// partial fill: the record reflects what actually traded
				cur.Quantity = qty
			}
		})
	if errors.Is(err, drepo.ErrConflict) {
		return
	}
	if err != nil {
		c.logger.Error("settle failed", logger.String("signal_id", sig.ID), logger.Error(err))
		return
	}

	if err := c.ledger.ApplyFill(ctx, models.Fill{
		OrderID:     settled.OrderID,
		PortfolioID: settled.PortfolioID,
		Symbol:      settled.Symbol,
		Side:        settled.Side,
		Quantity:    qty,
		AvgPrice:    st.AvgPrice,
	}); err != nil {
		c.logger.Error("apply fill failed",
			logger.String("signal_id", settled.ID),
			logger.String("order_id", settled.OrderID),
			logger.Error(err),
		)
	}
}

// VerifyPositions flags executed BUY signals whose symbol shows no holding
// after the verification delay. Advisory only: the holder is told, nothing
// is mutated.
func (c *ExecutionCoordinator) VerifyPositions(ctx context.Context) error {
	cutoff := c.now().Add(-c.verifyAfter)
	execs, err := c.signals.ListExecutedBuys(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list executed buys: %w", err)
	}

	holdingsByPortfolio := map[string]map[string]int{}
	for _, sig := range execs {
		holdings, ok := holdingsByPortfolio[sig.PortfolioID]
		if !ok {
			holdings, err = c.portfolios.Holdings(ctx, sig.PortfolioID)
			if err != nil {
				c.logger.Error("holdings lookup failed", logger.String("portfolio", sig.PortfolioID), logger.Error(err))
				continue
			}
			holdingsByPortfolio[sig.PortfolioID] = holdings
		}
		if holdings[sig.Symbol] > 0 {
			continue
		}

		recipient, rerr := c.portfolios.Recipient(ctx, sig.PortfolioID)
		if rerr != nil {
			continue
		}
		text := fmt.Sprintf("executed BUY %d %s on %s but no position is visible; check the broker",
			sig.Quantity, sig.Symbol, sig.CreatedAt.Format("2006-01-02"))
		if nerr := c.channel.Notify(ctx, recipient, text); nerr != nil {
			c.logger.Error("verification notice failed", logger.String("signal_id", sig.ID), logger.Error(nerr))
		}
	}
	return nil
}

package repository

import (
	"context"
	"time"

	"SignalDesk/internal/domain/models"
)

// SignalStore is the durable record of signals. Implementations must make
// UpdateIf an atomic conditional update so lifecycle transitions are safe
// under interleaved passes.
type SignalStore interface {
	Create(ctx context.Context, s *models.Signal) error
	Get(ctx context.Context, id string) (*models.Signal, error)

	// UpdateIf applies mutate to the signal only while its status is in
	// expect, and persists the result. Returns ErrConflict when the status
	// no longer matches.
	UpdateIf(ctx context.Context, id string, expect []models.Status, mutate func(*models.Signal)) (*models.Signal, error)

	ListByPortfolio(ctx context.Context, portfolioID string) ([]*models.Signal, error)
	// ListReserving returns the portfolio's signals in cash-reserving states.
	ListReserving(ctx context.Context, portfolioID string) ([]*models.Signal, error)
	// ListDue returns PENDING/SNOOZED signals never notified or last
	// notified before cutoff, ordered by creation time.
	ListDue(ctx context.Context, cutoff time.Time) ([]*models.Signal, error)
	// ListStale returns PENDING/SNOOZED signals created before cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]*models.Signal, error)
	// ListOpenOrders returns signals holding an order link the broker has
	// not settled yet.
	ListOpenOrders(ctx context.Context) ([]*models.Signal, error)
	// CountCreatedSince counts the portfolio's non-EXPIRED signals created
	// at or after since. Backs the daily cap.
	CountCreatedSince(ctx context.Context, portfolioID string, since time.Time) (int, error)
	// ListExecutedBuys returns EXECUTED BUY signals created before cutoff,
	// for the unfilled-position verification.
	ListExecutedBuys(ctx context.Context, cutoff time.Time) ([]*models.Signal, error)
}

// AuditTrail is the append-only SignalAction record.
type AuditTrail interface {
	Append(ctx context.Context, a *models.SignalAction) error
	ListBySignal(ctx context.Context, signalID string) ([]*models.SignalAction, error)
}

// PortfolioStore exposes the externally-owned portfolio figures: raw
// spendable cash, current holdings, and whether a live execution gateway is
// connected for the portfolio.
type PortfolioStore interface {
	RawCash(ctx context.Context, portfolioID string) (float64, error)
	AdjustCash(ctx context.Context, portfolioID string, delta float64) error
	Holdings(ctx context.Context, portfolioID string) (map[string]int, error)
	AdjustHolding(ctx context.Context, portfolioID, symbol string, delta int) error
	HasGateway(ctx context.Context, portfolioID string) (bool, error)
	Recipient(ctx context.Context, portfolioID string) (string, error)
}

// FillMarker records which broker orders already hit the capital ledger.
// Mark returns false when the order id was applied before; the ledger
// mutates cash only on a first-time true.
type FillMarker interface {
	Mark(ctx context.Context, orderID string) (bool, error)
}

// ExecutionGateway places orders with the broker and reports their
// authoritative status.
type ExecutionGateway interface {
	PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderAck, error)
	OrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// SignalMessage is a rendered delivery payload.
type SignalMessage struct {
	Signal  *models.Signal
	Text    string
	Actions []models.Action // buttons offered to the recipient
}

// NotificationChannel delivers rendered signals to a recipient and edits
// previously sent deliveries (to disable buttons mid-placement).
type NotificationChannel interface {
	Deliver(ctx context.Context, recipient string, msg SignalMessage) error
	Update(ctx context.Context, recipient string, msg SignalMessage) error
	Notify(ctx context.Context, recipient, text string) error
}

// RecommendationSource produces proposed trades for a portfolio. Opaque:
// prompt construction and model choice live behind it.
type RecommendationSource interface {
	Propose(ctx context.Context, pc models.PortfolioContext) ([]models.Proposal, error)
}

// QuoteSource reports the last seen trade price for a symbol.
type QuoteSource interface {
	LastPrice(symbol string) (float64, bool)
}

// Metrics records engine observations.
type Metrics interface {
	RecordSignalCreated(portfolio string, side string)
	RecordNotification(result string)
	RecordOrderPlaced(result string)
	RecordRollback(reason string)
	RecordExpiry()
	RecordEffectiveCash(portfolio string, amount float64)
	RecordLatency(op string, seconds float64)
}

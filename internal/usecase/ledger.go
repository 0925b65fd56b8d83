package usecase

import (
	"context"
	"fmt"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/logger"

	"github.com/shopspring/decimal"
)

// CapitalLedger computes effective cash and applies confirmed fills. It is
// the only component that mutates raw cash; everything else reads
// EffectiveCash.
type CapitalLedger struct {
	signals    drepo.SignalStore
	portfolios drepo.PortfolioStore
	quotes     drepo.QuoteSource
	fills      drepo.FillMarker
	metrics    drepo.Metrics
	logger     *logger.Logger

	// reserve an estimated amount for at-market BUY signals when a quote
	// is known
	reserveMarketEstimate bool
}

// NewCapitalLedger creates the ledger.
func NewCapitalLedger(
	signals drepo.SignalStore,
	portfolios drepo.PortfolioStore,
	quotes drepo.QuoteSource,
	fills drepo.FillMarker,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	reserveMarketEstimate bool,
) *CapitalLedger {
	return &CapitalLedger{
		signals:               signals,
		portfolios:            portfolios,
		quotes:                quotes,
		fills:                 fills,
		metrics:               metrics,
		logger:                lgr,
		reserveMarketEstimate: reserveMarketEstimate,
	}
}

// EffectiveCash returns raw available cash minus the reservations held by
// the portfolio's signals in reserving states. Recomputed on every call;
// reservations change continuously and the reserving set is small.
func (l *CapitalLedger) EffectiveCash(ctx context.Context, portfolioID string) (float64, error) {
	raw, err := l.portfolios.RawCash(ctx, portfolioID)
	if err != nil {
		return 0, fmt.Errorf("raw cash: %w", err)
	}

	reserving, err := l.signals.ListReserving(ctx, portfolioID)
	if err != nil {
		return 0, fmt.Errorf("reserving signals: %w", err)
	}

	reserved := decimal.Zero
	for _, sig := range reserving {
		quote := 0.0
		if l.reserveMarketEstimate && sig.Trigger.Type == models.TriggerMarket {
			if q, ok := l.quotes.LastPrice(sig.Symbol); ok {
				quote = q
			}
		}
		reserved = reserved.Add(decimal.NewFromFloat(sig.Reservation(quote)))
	}

	effective, _ := decimal.NewFromFloat(raw).Sub(reserved).Float64()
	l.metrics.RecordEffectiveCash(portfolioID, effective)
	return effective, nil
}

// ApplyFill applies a confirmed broker fill to raw cash, exactly once per
// order id. The webhook path and the polling sweep can both observe the
// same completion; the fill marker decides which caller mutates cash.
func (l *CapitalLedger) ApplyFill(ctx context.Context, fill models.Fill) error {
	if fill.OrderID == "" {
		return fmt.Errorf("fill has no order id")
	}
	first, err := l.fills.Mark(ctx, fill.OrderID)
	if err != nil {
		return fmt.Errorf("mark fill: %w", err)
	}
	if !first {
		l.logger.Debug("fill already applied", logger.String("order_id", fill.OrderID))
		return nil
	}

	amount, _ := decimal.NewFromInt(int64(fill.Quantity)).
		Mul(decimal.NewFromFloat(fill.AvgPrice)).
		Float64()

	delta := -amount
	holdingDelta := fill.Quantity
	if fill.Side == models.SideSell {
		delta = amount
		holdingDelta = -fill.Quantity
	}

	if err := l.portfolios.AdjustCash(ctx, fill.PortfolioID, delta); err != nil {
		return fmt.Errorf("adjust cash: %w", err)
	}
	if err := l.portfolios.AdjustHolding(ctx, fill.PortfolioID, fill.Symbol, holdingDelta); err != nil {
		return fmt.Errorf("adjust holding: %w", err)
	}

	l.logger.Info("fill applied",
		logger.String("order_id", fill.OrderID),
		logger.String("portfolio", fill.PortfolioID),
		logger.String("symbol", fill.Symbol),
		logger.Int("quantity", fill.Quantity),
		logger.Float64("avg_price", fill.AvgPrice),
	)
	return nil
}

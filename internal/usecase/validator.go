package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/logger"
	"SignalDesk/pkg/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SignalValidator screens advisor proposals against the portfolio's
// effective cash and holdings before they become live signals.
type SignalValidator struct {
	signals    drepo.SignalStore
	portfolios drepo.PortfolioStore
	ledger     *CapitalLedger
	metrics    drepo.Metrics
	logger     *logger.Logger

	dailyCap int
	now      func() time.Time
}

// NewSignalValidator creates the validator.
func NewSignalValidator(
	signals drepo.SignalStore,
	portfolios drepo.PortfolioStore,
	ledger *CapitalLedger,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	dailyCap int,
) *SignalValidator {
	return &SignalValidator{
		signals:    signals,
		portfolios: portfolios,
		ledger:     ledger,
		metrics:    metrics,
		logger:     lgr,
		dailyCap:   dailyCap,
		now:        time.Now,
	}
}

// SetClock overrides the validator's clock. Tests only.
func (v *SignalValidator) SetClock(now func() time.Time) { v.now = now }

// ValidateBatch screens a batch of proposals for one portfolio and persists
// the survivors as PENDING signals. BUY proposals are considered in
// descending confidence order against a running effective-cash budget; a
// proposal that does not fit whole is reduced to the largest unit quantity
// that does. SELL proposals are clamped to current holdings. The whole
// batch is rejected when the portfolio already hit its daily signal cap.
func (v *SignalValidator) ValidateBatch(ctx context.Context, portfolioID string, proposals []models.Proposal) ([]*models.Signal, error) {
	now := v.now()

	created, err := v.signals.CountCreatedSince(ctx, portfolioID, util.DayStart(now))
	if err != nil {
		return nil, fmt.Errorf("count created: %w", err)
	}
	if created >= v.dailyCap {
		return nil, drepo.ErrDailyCapReached
	}

	var buys, sells []models.Proposal
	for _, p := range proposals {
		if err := xhttp.ValidateStruct(&p); err != nil {
			v.logger.Warn("proposal dropped",
				logger.String("portfolio", portfolioID),
				logger.String("symbol", p.Symbol),
				logger.Error(err),
			)
			continue
		}
		switch p.Side {
		case models.SideBuy:
			buys = append(buys, p)
		case models.SideSell:
			sells = append(sells, p)
		}
	}

	// Highest conviction claims the budget first. Stable sort keeps the
	// advisor's ordering between equal-confidence proposals.
	sort.SliceStable(buys, func(i, j int) bool {
		return buys[i].Confidence > buys[j].Confidence
	})

	budget, err := v.ledger.EffectiveCash(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("effective cash: %w", err)
	}
	remaining := decimal.NewFromFloat(budget)

	var accepted []*models.Signal

	for _, p := range buys {
		ref, ok := p.ReferencePrice()
		if !ok {
			// At-market proposals carry no price to size against; the
			// reservation is estimated later, at notification time.
			accepted = append(accepted, v.build(portfolioID, p, p.Quantity, now))
			continue
		}

		price := decimal.NewFromFloat(ref)
		cost := price.Mul(decimal.NewFromInt(int64(p.Quantity)))

		switch {
		case cost.LessThanOrEqual(remaining):
			accepted = append(accepted, v.build(portfolioID, p, p.Quantity, now))
			remaining = remaining.Sub(cost)
		case price.LessThanOrEqual(remaining):
			qty := int(remaining.Div(price).IntPart())
			accepted = append(accepted, v.build(portfolioID, p, qty, now))
			remaining = remaining.Sub(price.Mul(decimal.NewFromInt(int64(qty))))
			v.logger.Info("buy proposal reduced",
				logger.String("portfolio", portfolioID),
				logger.String("symbol", p.Symbol),
				logger.Int("proposed", p.Quantity),
				logger.Int("accepted", qty),
			)
		default:
			v.logger.Info("buy proposal dropped, insufficient cash",
				logger.String("portfolio", portfolioID),
				logger.String("symbol", p.Symbol),
				logger.Int("quantity", p.Quantity),
			)
		}
	}

	holdings, err := v.portfolios.Holdings(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("holdings: %w", err)
	}
	for _, p := range sells {
		held := holdings[p.Symbol]
		if held <= 0 {
			v.logger.Info("sell proposal dropped, nothing held",
				logger.String("portfolio", portfolioID),
				logger.String("symbol", p.Symbol),
			)
			continue
		}
		qty := p.Quantity
		if qty > held {
			qty = held
			v.logger.Info("sell proposal clamped to holdings",
				logger.String("portfolio", portfolioID),
				logger.String("symbol", p.Symbol),
				logger.Int("proposed", p.Quantity),
				logger.Int("accepted", qty),
			)
		}
		accepted = append(accepted, v.build(portfolioID, p, qty, now))
	}

	for _, sig := range accepted {
		if err := v.signals.Create(ctx, sig); err != nil {
			return nil, fmt.Errorf("create signal %s: %w", sig.Symbol, err)
		}
		v.metrics.RecordSignalCreated(portfolioID, string(sig.Side))
	}
	return accepted, nil
}

func (v *SignalValidator) build(portfolioID string, p models.Proposal, qty int, now time.Time) *models.Signal {
	return &models.Signal{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		Symbol:      p.Symbol,
		Exchange:    p.Exchange,
		Side:        p.Side,
		Quantity:    qty,
		Trigger:     p.ToTrigger(),
		Confidence:  p.Confidence,
		Rationale:   p.Rationale,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

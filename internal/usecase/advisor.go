package usecase

import (
	"context"
	"errors"
	"fmt"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/logger"
)

// AdvisorPass asks the recommendation source for proposals per portfolio and
// feeds them through the validator. One portfolio failing never blocks the
// rest.
type AdvisorPass struct {
	source     drepo.RecommendationSource
	validator  *SignalValidator
	ledger     *CapitalLedger
	portfolios drepo.PortfolioStore
	logger     *logger.Logger

	portfolioIDs []string
}

// NewAdvisorPass creates the pass over the configured portfolios.
func NewAdvisorPass(
	source drepo.RecommendationSource,
	validator *SignalValidator,
	ledger *CapitalLedger,
	portfolios drepo.PortfolioStore,
	lgr *logger.Logger,
	portfolioIDs []string,
) *AdvisorPass {
	return &AdvisorPass{
		source:       source,
		validator:    validator,
		ledger:       ledger,
		portfolios:   portfolios,
		logger:       lgr,
		portfolioIDs: portfolioIDs,
	}
}

// Run requests and screens proposals for every configured portfolio.
func (a *AdvisorPass) Run(ctx context.Context) error {
	for _, pid := range a.portfolioIDs {
		if err := a.runPortfolio(ctx, pid); err != nil {
			a.logger.Error("advisor pass failed",
				logger.String("portfolio", pid),
				logger.Error(err),
			)
		}
	}
	return nil
}

func (a *AdvisorPass) runPortfolio(ctx context.Context, portfolioID string) error {
	cash, err := a.ledger.EffectiveCash(ctx, portfolioID)
	if err != nil {
		return fmt.Errorf("effective cash: %w", err)
	}
	holdings, err := a.portfolios.Holdings(ctx, portfolioID)
	if err != nil {
		return fmt.Errorf("holdings: %w", err)
	}

	proposals, err := a.source.Propose(ctx, models.PortfolioContext{
		PortfolioID:   portfolioID,
		EffectiveCash: cash,
		Holdings:      holdings,
	})
	if err != nil {
		return fmt.Errorf("propose: %w", err)
	}
	if len(proposals) == 0 {
		return nil
	}

	accepted, err := a.validator.ValidateBatch(ctx, portfolioID, proposals)
	if errors.Is(err, drepo.ErrDailyCapReached) {
		a.logger.Info("daily signal cap reached", logger.String("portfolio", portfolioID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("validate batch: %w", err)
	}

	a.logger.Info("proposals screened",
		logger.String("portfolio", portfolioID),
		logger.Int("proposed", len(proposals)),
		logger.Int("accepted", len(accepted)),
	)
	return nil
}

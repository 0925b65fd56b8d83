package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
	"SignalDesk/internal/repository"
	"SignalDesk/internal/service/quotes"
	"SignalDesk/pkg/logger"
)

func newValidatorFixture(cash float64, holdings map[string]int) (*SignalValidator, *repository.MemorySignalStore) {
	signals := repository.NewMemorySignalStore()
	portfolios := repository.NewMemoryPortfolioStore(repository.MemoryPortfolio{
		ID: "p1", Cash: cash, Holdings: holdings, Recipient: "user-1",
	})
	ledger := NewCapitalLedger(signals, portfolios, quotes.NoQuotes{}, repository.NewMemoryFillMarker(), nopMetrics{}, logger.Nop(), true)
	return NewSignalValidator(signals, portfolios, ledger, nopMetrics{}, logger.Nop(), 3), signals
}

func limitBuy(symbol string, qty int, price float64, confidence int) models.Proposal {
	return models.Proposal{
		Symbol: symbol, Side: models.SideBuy, Quantity: qty,
		TriggerType: models.TriggerLimit, Price: price, Confidence: confidence,
	}
}

func TestHighestConfidenceClaimsBudgetFirst(t *testing.T) {
	v, _ := newValidatorFixture(10000, nil)

	accepted, err := v.ValidateBatch(context.Background(), "p1", []models.Proposal{
		limitBuy("LOW", 20, 500, 30),  // 10000, would exhaust the budget alone
		limitBuy("HIGH", 10, 600, 90), // 6000
		limitBuy("MID", 5, 900, 60),   // 4500
	})
	if err != nil {
		t.Fatalf("validate batch: %v", err)
	}

	// HIGH fits whole (4000 left), MID is cut to 4 units (400 left), and
	// LOW cannot afford even one unit at 500.
	if len(accepted) != 2 {
		t.Fatalf("accepted %d signals, want 2", len(accepted))
	}
	if accepted[0].Symbol != "HIGH" || accepted[0].Quantity != 10 {
		t.Fatalf("first accepted = %s qty %d, want HIGH qty 10", accepted[0].Symbol, accepted[0].Quantity)
	}
	if accepted[1].Symbol != "MID" || accepted[1].Quantity != 4 {
		t.Fatalf("second accepted = %s qty %d, want MID qty 4", accepted[1].Symbol, accepted[1].Quantity)
	}
}

func TestBuyReducedToAffordableQuantity(t *testing.T) {
	v, _ := newValidatorFixture(10000, nil)

	accepted, err := v.ValidateBatch(context.Background(), "p1", []models.Proposal{
		limitBuy("X", 20, 500, 50), // 10000 proposed
		limitBuy("Y", 10, 600, 90), // 6000 proposed
	})
	if err != nil {
		t.Fatalf("validate batch: %v", err)
	}
	if len(accepted) != 2 {
		t.Fatalf("accepted %d signals, want 2", len(accepted))
	}
	if accepted[0].Symbol != "Y" || accepted[0].Quantity != 10 {
		t.Fatalf("Y accepted as qty %d, want 10", accepted[0].Quantity)
	}
	// 4000 left after Y: X fits 8 whole units at 500
	if accepted[1].Symbol != "X" || accepted[1].Quantity != 8 {
		t.Fatalf("X accepted as qty %d, want 8", accepted[1].Quantity)
	}
}

func TestBuyDroppedWhenOneUnitUnaffordable(t *testing.T) {
	v, _ := newValidatorFixture(400, nil)

	accepted, err := v.ValidateBatch(context.Background(), "p1", []models.Proposal{
		limitBuy("X", 2, 500, 80),
	})
	if err != nil {
		t.Fatalf("validate batch: %v", err)
	}
	if len(accepted) != 0 {
		t.Fatalf("accepted %d signals, want 0", len(accepted))
	}
}

func TestMarketBuyBypassesBudgetCheck(t *testing.T) {
	v, _ := newValidatorFixture(0, nil)

	accepted, err := v.ValidateBatch(context.Background(), "p1", []models.Proposal{
		{Symbol: "X", Side: models.SideBuy, Quantity: 5, TriggerType: models.TriggerMarket, Confidence: 70},
	})
	if err != nil {
		t.Fatalf("validate batch: %v", err)
	}
	if len(accepted) != 1 || accepted[0].Quantity != 5 {
		t.Fatalf("market proposal not accepted unchanged: %+v", accepted)
	}
	if accepted[0].Status != models.StatusPending {
		t.Fatalf("status = %s, want PENDING", accepted[0].Status)
	}
}

func TestSellClampedToHoldings(t *testing.T) {
	v, _ := newValidatorFixture(0, map[string]int{"WIPRO": 20})

	accepted, err := v.ValidateBatch(context.Background(), "p1", []models.Proposal{
		{Symbol: "WIPRO", Side: models.SideSell, Quantity: 50, TriggerType: models.TriggerLimit, Price: 400, Confidence: 60},
		{Symbol: "UNHELD", Side: models.SideSell, Quantity: 5, TriggerType: models.TriggerMarket, Confidence: 60},
	})
	if err != nil {
		t.Fatalf("validate batch: %v", err)
	}
	if len(accepted) != 1 {
		t.Fatalf("accepted %d signals, want 1", len(accepted))
	}
	if accepted[0].Symbol != "WIPRO" || accepted[0].Quantity != 20 {
		t.Fatalf("sell accepted as %s qty %d, want WIPRO qty 20", accepted[0].Symbol, accepted[0].Quantity)
	}
}

func TestDailyCapRejectsWholeBatch(t *testing.T) {
	v, signals := newValidatorFixture(100000, nil)
	ctx := context.Background()

	day := time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC)
	signals.SetClock(func() time.Time { return day })
	v.SetClock(func() time.Time { return day })

	for _, id := range []string{"a", "b", "c"} {
		mustCreate(t, signals, &models.Signal{
			ID: id, PortfolioID: "p1", Symbol: "X", Side: models.SideBuy,
			Quantity: 1, Trigger: models.Trigger{Type: models.TriggerMarket},
			Status: models.StatusPending,
		})
	}

	_, err := v.ValidateBatch(ctx, "p1", []models.Proposal{limitBuy("Y", 1, 10, 50)})
	if !errors.Is(err, drepo.ErrDailyCapReached) {
		t.Fatalf("err = %v, want ErrDailyCapReached", err)
	}

	// next day the cap resets
	v.SetClock(func() time.Time { return day.Add(24 * time.Hour) })
	signals.SetClock(func() time.Time { return day.Add(24 * time.Hour) })
	accepted, err := v.ValidateBatch(ctx, "p1", []models.Proposal{limitBuy("Y", 1, 10, 50)})
	if err != nil {
		t.Fatalf("validate batch after reset: %v", err)
	}
	if len(accepted) != 1 {
		t.Fatalf("accepted %d signals, want 1", len(accepted))
	}
}

func TestMalformedProposalDropped(t *testing.T) {
	v, _ := newValidatorFixture(10000, nil)

	accepted, err := v.ValidateBatch(context.Background(), "p1", []models.Proposal{
		{Symbol: "", Side: models.SideBuy, Quantity: 1, TriggerType: models.TriggerMarket},
		{Symbol: "OK", Side: "HOLD", Quantity: 1, TriggerType: models.TriggerMarket},
		limitBuy("GOOD", 2, 100, 50),
	})
	if err != nil {
		t.Fatalf("validate batch: %v", err)
	}
	if len(accepted) != 1 || accepted[0].Symbol != "GOOD" {
		t.Fatalf("accepted = %+v, want only GOOD", accepted)
	}
}

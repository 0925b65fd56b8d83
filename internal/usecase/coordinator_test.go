package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
	"SignalDesk/internal/repository"
	"SignalDesk/internal/service/quotes"
	"SignalDesk/pkg/logger"
)

type coordinatorFixture struct {
	coordinator *ExecutionCoordinator
	signals     *repository.MemorySignalStore
	portfolios  *repository.MemoryPortfolioStore
	audit       *repository.MemoryAuditTrail
	gateway     *scriptedGateway
	channel     *captureChannel
	clock       time.Time
}

func newCoordinatorFixture(t *testing.T, gateway bool) *coordinatorFixture {
	t.Helper()
	f := &coordinatorFixture{
		signals: repository.NewMemorySignalStore(),
		audit:   repository.NewMemoryAuditTrail(),
		gateway: newScriptedGateway(models.OrderAck{OrderID: "ord-1", State: models.BrokerOpen}),
		channel: newCaptureChannel(),
		clock:   time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC),
	}
	f.portfolios = repository.NewMemoryPortfolioStore(repository.MemoryPortfolio{
		ID: "p1", Cash: 10000, Gateway: gateway, Recipient: "user-1",
	})
	now := func() time.Time { return f.clock }
	f.signals.SetClock(now)
	ledger := NewCapitalLedger(f.signals, f.portfolios, quotes.NoQuotes{}, repository.NewMemoryFillMarker(), nopMetrics{}, logger.Nop(), true)
	f.coordinator = NewExecutionCoordinator(f.signals, f.audit, ledger, f.portfolios, f.gateway, f.channel, nopMetrics{}, logger.Nop(), 0, 72*time.Hour)
	f.coordinator.SetClock(now)
	return f
}

func (f *coordinatorFixture) seedPending(t *testing.T, id string) {
	t.Helper()
	ts := f.clock.Add(-time.Minute)
	mustCreate(t, f.signals, &models.Signal{
		ID: id, PortfolioID: "p1", Symbol: "TATASTEEL", Side: models.SideBuy,
		Quantity: 4, Trigger: models.Trigger{Type: models.TriggerLimit, Price: 500},
		Confidence: 70, Status: models.StatusPending, LastNotifiedAt: &ts, NotifyCount: 1,
	})
}

func (f *coordinatorFixture) actionsFor(t *testing.T, signalID string) []models.Action {
	t.Helper()
	acts, err := f.audit.ListBySignal(context.Background(), signalID)
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	out := make([]models.Action, 0, len(acts))
	for _, a := range acts {
		out = append(out, a.Action)
	}
	return out
}

func TestExecutePlacesExactlyOneOrder(t *testing.T) {
	f := newCoordinatorFixture(t, true)
	f.seedPending(t, "s1")
	ctx := context.Background()

	sig, err := f.coordinator.Execute(ctx, "s1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if sig.Status != models.StatusExecuted || sig.OrderID != "ord-1" || sig.OrderState != models.OrderStatePending {
		t.Fatalf("signal after execute: status=%s order=%s state=%s", sig.Status, sig.OrderID, sig.OrderState)
	}

	// doubled button press
	if _, err := f.coordinator.Execute(ctx, "s1"); !errors.Is(err, drepo.ErrAlreadyHandled) {
		t.Fatalf("second execute err = %v, want ErrAlreadyHandled", err)
	}
	if len(f.gateway.placed) != 1 {
		t.Fatalf("placed %d orders, want 1", len(f.gateway.placed))
	}

	acts := f.actionsFor(t, "s1")
	if len(acts) != 1 || acts[0] != models.ActionExecute {
		t.Fatalf("audit = %v, want [EXECUTE]", acts)
	}
}

func TestExecuteRequiresLiveGateway(t *testing.T) {
	f := newCoordinatorFixture(t, false)
	f.seedPending(t, "s1")

	if _, err := f.coordinator.Execute(context.Background(), "s1"); !errors.Is(err, drepo.ErrNoGateway) {
		t.Fatalf("err = %v, want ErrNoGateway", err)
	}
	got, _ := f.signals.Get(context.Background(), "s1")
	if got.Status != models.StatusPending {
		t.Fatalf("status = %s, want PENDING", got.Status)
	}
}

func TestExecuteUnknownSignal(t *testing.T) {
	f := newCoordinatorFixture(t, true)
	if _, err := f.coordinator.Execute(context.Background(), "missing"); !errors.Is(err, drepo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPlacementFailureRollsBackAndRenotifies(t *testing.T) {
	f := newCoordinatorFixture(t, true)
	f.seedPending(t, "s1")
	f.gateway.placeErr = errors.New("gateway timeout")

	_, err := f.coordinator.Execute(context.Background(), "s1")
	if err == nil {
		t.Fatal("execute succeeded, want error")
	}

	got, _ := f.signals.Get(context.Background(), "s1")
	if got.Status != models.StatusPending {
		t.Fatalf("status = %s, want PENDING", got.Status)
	}
	if got.OrderID != "" || got.OrderState != models.OrderStateNone {
		t.Fatalf("order link not cleared: %s/%s", got.OrderID, got.OrderState)
	}
	if got.LastNotifiedAt != nil {
		t.Fatalf("LastNotifiedAt = %v, want nil for immediate re-delivery", got.LastNotifiedAt)
	}

	acts := f.actionsFor(t, "s1")
	if len(acts) != 1 || acts[0] != models.ActionRollback {
		t.Fatalf("audit = %v, want [ROLLBACK]", acts)
	}
	if n := f.channel.deliveredFor("s1"); n != 1 {
		t.Fatalf("re-delivered %d times, want 1", n)
	}
}

func TestReconcileAppliesFillOnce(t *testing.T) {
	f := newCoordinatorFixture(t, true)
	f.seedPending(t, "s1")
	ctx := context.Background()

	if _, err := f.coordinator.Execute(ctx, "s1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	f.gateway.statuses["ord-1"] = models.OrderStatus{
		OrderID: "ord-1", State: models.BrokerFilled, FilledQuantity: 4, AvgPrice: 498.50,
	}

	for i := 0; i < 2; i++ {
		if err := f.coordinator.Reconcile(ctx); err != nil {
			t.Fatalf("reconcile #%d: %v", i+1, err)
		}
	}

	cash, _ := f.portfolios.RawCash(ctx, "p1")
	if !approx(cash, 10000-4*498.50) {
		t.Fatalf("cash = %v, want %v", cash, 10000-4*498.50)
	}
	holdings, _ := f.portfolios.Holdings(ctx, "p1")
	if holdings["TATASTEEL"] != 4 {
		t.Fatalf("holding = %d, want 4", holdings["TATASTEEL"])
	}
	got, _ := f.signals.Get(ctx, "s1")
	if got.OrderState != models.OrderStateFilled {
		t.Fatalf("order state = %s, want filled", got.OrderState)
	}
}

func TestReconcilePartialFillAdjustsQuantity(t *testing.T) {
	f := newCoordinatorFixture(t, true)
	f.seedPending(t, "s1")
	ctx := context.Background()

	if _, err := f.coordinator.Execute(ctx, "s1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	f.gateway.statuses["ord-1"] = models.OrderStatus{
		OrderID: "ord-1", State: models.BrokerFilled, FilledQuantity: 3, AvgPrice: 500,
	}
	if err := f.coordinator.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	got, _ := f.signals.Get(ctx, "s1")
	if got.Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", got.Quantity)
	}
	cash, _ := f.portfolios.RawCash(ctx, "p1")
	if !approx(cash, 10000-3*500) {
		t.Fatalf("cash = %v, want %v", cash, 10000-3*500.0)
	}
}

func TestReconcileRejectedOrderRollsBack(t *testing.T) {
	f := newCoordinatorFixture(t, true)
	f.seedPending(t, "s1")
	ctx := context.Background()

	if _, err := f.coordinator.Execute(ctx, "s1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	f.gateway.statuses["ord-1"] = models.OrderStatus{
		OrderID: "ord-1", State: models.BrokerRejected, Message: "insufficient margin",
	}
	if err := f.coordinator.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	got, _ := f.signals.Get(ctx, "s1")
	if got.Status != models.StatusPending || got.OrderID != "" {
		t.Fatalf("signal after rollback: status=%s order=%q", got.Status, got.OrderID)
	}
	cash, _ := f.portfolios.RawCash(ctx, "p1")
	if !approx(cash, 10000) {
		t.Fatalf("cash = %v, want untouched 10000", cash)
	}

	acts := f.actionsFor(t, "s1")
	if len(acts) != 2 || acts[1] != models.ActionRollback {
		t.Fatalf("audit = %v, want [EXECUTE ROLLBACK]", acts)
	}
}

func TestVerifyPositionsFlagsMissingHolding(t *testing.T) {
	f := newCoordinatorFixture(t, true)
	ctx := context.Background()

	// executed four days ago, never showed up in holdings
	f.signals.SetClock(func() time.Time { return f.clock.Add(-4 * 24 * time.Hour) })
	mustCreate(t, f.signals, &models.Signal{
		ID: "old", PortfolioID: "p1", Symbol: "SBIN", Side: models.SideBuy,
		Quantity: 5, Trigger: models.Trigger{Type: models.TriggerMarket},
		Status: models.StatusExecuted, OrderID: "ord-9", OrderState: models.OrderStateFilled,
	})

	if err := f.coordinator.VerifyPositions(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(f.channel.notices) != 1 || !strings.Contains(f.channel.notices[0], "SBIN") {
		t.Fatalf("notices = %v, want one mentioning SBIN", f.channel.notices)
	}

	// once the holding exists the check stays quiet
	f.channel.notices = nil
	if err := f.portfolios.AdjustHolding(ctx, "p1", "SBIN", 5); err != nil {
		t.Fatalf("seed holding: %v", err)
	}
	if err := f.coordinator.VerifyPositions(ctx); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(f.channel.notices) != 0 {
		t.Fatalf("notices = %v, want none", f.channel.notices)
	}
}

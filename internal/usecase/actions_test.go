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

func newActionFixture(t *testing.T) (*ActionService, *repository.MemorySignalStore, *repository.MemoryAuditTrail) {
	t.Helper()
	signals := repository.NewMemorySignalStore()
	audit := repository.NewMemoryAuditTrail()
	portfolios := repository.NewMemoryPortfolioStore(repository.MemoryPortfolio{
		ID: "p1", Cash: 10000, Gateway: true, Recipient: "user-1",
	})
	ledger := NewCapitalLedger(signals, portfolios, quotes.NoQuotes{}, repository.NewMemoryFillMarker(), nopMetrics{}, logger.Nop(), true)
	coordinator := NewExecutionCoordinator(signals, audit, ledger, portfolios,
		newScriptedGateway(models.OrderAck{OrderID: "ord-1", State: models.BrokerOpen}),
		newCaptureChannel(), nopMetrics{}, logger.Nop(), 0, 72*time.Hour)
	return NewActionService(signals, audit, coordinator, logger.Nop()), signals, audit
}

func seedActionable(t *testing.T, signals *repository.MemorySignalStore, id string, status models.Status) {
	t.Helper()
	mustCreate(t, signals, &models.Signal{
		ID: id, PortfolioID: "p1", Symbol: "INFY", Side: models.SideBuy,
		Quantity: 2, Trigger: models.Trigger{Type: models.TriggerLimit, Price: 1500},
		Status: status,
	})
}

func TestApplyLifecycleActions(t *testing.T) {
	cases := []struct {
		from   models.Status
		action models.Action
		want   models.Status
	}{
		{models.StatusPending, models.ActionAck, models.StatusAcked},
		{models.StatusPending, models.ActionSnooze, models.StatusSnoozed},
		{models.StatusSnoozed, models.ActionAck, models.StatusAcked},
		{models.StatusAcked, models.ActionDismiss, models.StatusDismissed},
		{models.StatusPending, models.ActionDismiss, models.StatusDismissed},
	}
	for _, tc := range cases {
		svc, signals, audit := newActionFixture(t)
		seedActionable(t, signals, "s1", tc.from)

		got, err := svc.Apply(context.Background(), "s1", tc.action, "")
		if err != nil {
			t.Fatalf("%s + %s: %v", tc.from, tc.action, err)
		}
		if got.Status != tc.want {
			t.Fatalf("%s + %s = %s, want %s", tc.from, tc.action, got.Status, tc.want)
		}
		acts, _ := audit.ListBySignal(context.Background(), "s1")
		if len(acts) != 1 || acts[0].Action != tc.action {
			t.Fatalf("%s + %s audit = %+v", tc.from, tc.action, acts)
		}
	}
}

func TestApplyToTerminalSignal(t *testing.T) {
	svc, signals, _ := newActionFixture(t)
	seedActionable(t, signals, "s1", models.StatusDismissed)

	if _, err := svc.Apply(context.Background(), "s1", models.ActionAck, ""); !errors.Is(err, drepo.ErrAlreadyHandled) {
		t.Fatalf("err = %v, want ErrAlreadyHandled", err)
	}
}

func TestApplyInvalidPair(t *testing.T) {
	svc, signals, _ := newActionFixture(t)
	seedActionable(t, signals, "s1", models.StatusAcked)

	_, err := svc.Apply(context.Background(), "s1", models.ActionSnooze, "")
	var invalid *models.ErrInvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestApplyExecuteDelegates(t *testing.T) {
	svc, signals, audit := newActionFixture(t)
	seedActionable(t, signals, "s1", models.StatusPending)

	got, err := svc.Apply(context.Background(), "s1", models.ActionExecute, "")
	if err != nil {
		t.Fatalf("execute via action: %v", err)
	}
	if got.Status != models.StatusExecuted || got.OrderID != "ord-1" {
		t.Fatalf("signal = status %s order %q", got.Status, got.OrderID)
	}
	acts, _ := audit.ListBySignal(context.Background(), "s1")
	if len(acts) != 1 || acts[0].Action != models.ActionExecute {
		t.Fatalf("audit = %+v, want one EXECUTE", acts)
	}
}

func TestHistoryUnknownSignal(t *testing.T) {
	svc, _, _ := newActionFixture(t)
	if _, err := svc.History(context.Background(), "missing"); !errors.Is(err, drepo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

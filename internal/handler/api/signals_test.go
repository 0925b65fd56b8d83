package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
	"SignalDesk/internal/repository"
	"SignalDesk/internal/service/gateway"
	"SignalDesk/internal/service/quotes"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

type recorderMetrics struct{}

func (recorderMetrics) RecordSignalCreated(string, string)  {}
func (recorderMetrics) RecordNotification(string)           {}
func (recorderMetrics) RecordOrderPlaced(string)            {}
func (recorderMetrics) RecordRollback(string)               {}
func (recorderMetrics) RecordExpiry()                       {}
func (recorderMetrics) RecordEffectiveCash(string, float64) {}
func (recorderMetrics) RecordLatency(string, float64)       {}

type noopChannel struct{}

func (noopChannel) Deliver(context.Context, string, drepo.SignalMessage) error { return nil }
func (noopChannel) Update(context.Context, string, drepo.SignalMessage) error  { return nil }
func (noopChannel) Notify(context.Context, string, string) error               { return nil }

func newHandlerFixture(t *testing.T) (*echo.Echo, *repository.MemorySignalStore) {
	t.Helper()
	lgr := logger.Nop()
	signals := repository.NewMemorySignalStore()
	audit := repository.NewMemoryAuditTrail()
	portfolios := repository.NewMemoryPortfolioStore(repository.MemoryPortfolio{
		ID: "p1", Cash: 10000, Gateway: true, Recipient: "user-1",
	})
	qs := quotes.StaticQuotes{}
	ledger := usecase.NewCapitalLedger(signals, portfolios, qs, repository.NewMemoryFillMarker(), recorderMetrics{}, lgr, true)
	gw := gateway.NewPaper(qs)
	coordinator := usecase.NewExecutionCoordinator(signals, audit, ledger, portfolios, gw, noopChannel{}, recorderMetrics{}, lgr, 0, 72*time.Hour)
	actions := usecase.NewActionService(signals, audit, coordinator, lgr)

	e := echo.New()
	NewSignalHandler(actions, ledger, signals, portfolios, lgr).RegisterRoutes(e)
	return e, signals
}

func seedSignal(t *testing.T, signals *repository.MemorySignalStore, id string, status models.Status) {
	t.Helper()
	err := signals.Create(context.Background(), &models.Signal{
		ID: id, PortfolioID: "p1", Symbol: "TATASTEEL", Side: models.SideBuy,
		Quantity: 4, Trigger: models.Trigger{Type: models.TriggerLimit, Price: 500},
		Confidence: 70, Status: status,
	})
	if err != nil {
		t.Fatalf("seed signal: %v", err)
	}
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestApplyActionAck(t *testing.T) {
	e, signals := newHandlerFixture(t)
	seedSignal(t, signals, "s1", models.StatusPending)

	rec := doJSON(e, http.MethodPost, "/v1/signals/s1/actions", `{"action":"ACK"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	got, _ := signals.Get(context.Background(), "s1")
	if got.Status != models.StatusAcked {
		t.Fatalf("signal status = %s, want ACKED", got.Status)
	}
}

func TestApplyActionAlreadyHandled(t *testing.T) {
	e, signals := newHandlerFixture(t)
	seedSignal(t, signals, "s1", models.StatusDismissed)

	rec := doJSON(e, http.MethodPost, "/v1/signals/s1/actions", `{"action":"ACK"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body = %s", rec.Code, rec.Body.String())
	}
}

func TestApplyActionUnknownSignal(t *testing.T) {
	e, _ := newHandlerFixture(t)
	rec := doJSON(e, http.MethodPost, "/v1/signals/missing/actions", `{"action":"ACK"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestApplyActionRejectsBadPayload(t *testing.T) {
	e, signals := newHandlerFixture(t)
	seedSignal(t, signals, "s1", models.StatusPending)

	rec := doJSON(e, http.MethodPost, "/v1/signals/s1/actions", `{"action":"SHRUG"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetSignal(t *testing.T) {
	e, signals := newHandlerFixture(t)
	seedSignal(t, signals, "s1", models.StatusPending)

	rec := doJSON(e, http.MethodGet, "/v1/signals/s1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Data models.Signal `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Symbol != "TATASTEEL" {
		t.Fatalf("symbol = %s, want TATASTEEL", resp.Data.Symbol)
	}
}

func TestEffectiveCashEndpoint(t *testing.T) {
	e, signals := newHandlerFixture(t)
	seedSignal(t, signals, "s1", models.StatusPending) // reserves 2000

	rec := doJSON(e, http.MethodGet, "/v1/portfolios/p1/cash", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Data struct {
			EffectiveCash float64 `json:"effective_cash"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.EffectiveCash != 8000 {
		t.Fatalf("effective cash = %v, want 8000", resp.Data.EffectiveCash)
	}
}

func TestHealth(t *testing.T) {
	e, _ := newHandlerFixture(t)
	rec := doJSON(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

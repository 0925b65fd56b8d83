package api

import (
	"errors"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
	"SignalDesk/internal/usecase"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalHandler serves the signal API: action callbacks from the
// notification channel, signal reads, and portfolio views.
type SignalHandler struct {
	actions    *usecase.ActionService
	ledger     *usecase.CapitalLedger
	signals    drepo.SignalStore
	portfolios drepo.PortfolioStore
	logger     *logger.Logger
}

// NewSignalHandler creates the handler.
func NewSignalHandler(
	actions *usecase.ActionService,
	ledger *usecase.CapitalLedger,
	signals drepo.SignalStore,
	portfolios drepo.PortfolioStore,
	lgr *logger.Logger,
) *SignalHandler {
	return &SignalHandler{
		actions:    actions,
		ledger:     ledger,
		signals:    signals,
		portfolios: portfolios,
		logger:     lgr,
	}
}

// RegisterRoutes registers the API routes.
func (h *SignalHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	v1 := e.Group("/v1")
	v1.POST("/signals/:id/actions", h.ApplyAction)
	v1.GET("/signals/:id", h.GetSignal)
	v1.GET("/signals/:id/actions", h.GetHistory)
	v1.GET("/portfolios/:id/signals", h.ListPortfolioSignals)
	v1.GET("/portfolios/:id/cash", h.GetEffectiveCash)
}

// Health returns service liveness.
func (h *SignalHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

type actionRequest struct {
	Action models.Action `json:"action" validate:"required,oneof=ACK SNOOZE_30M DISMISS EXECUTE"`
	Note   string        `json:"note,omitempty"`
}

// ApplyAction applies a recipient action to a signal. Actions against
// already-handled signals return 409 so button callbacks can tell the
// recipient the press came too late.
func (h *SignalHandler) ApplyAction(c echo.Context) error {
	id := c.Param("id")

	var req actionRequest
	if details := xhttp.ReadAndValidateRequest(c, &req); details != nil {
		return xhttp.BadRequestResponse(c, details)
	}

	sig, err := h.actions.Apply(c.Request().Context(), id, req.Action, req.Note)
	switch {
	case err == nil:
		return xhttp.SuccessResponse(c, sig)
	case errors.Is(err, drepo.ErrNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("signal not found"))
	case errors.Is(err, drepo.ErrAlreadyHandled):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("signal already handled"))
	case errors.Is(err, drepo.ErrNoGateway):
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError("no execution gateway for this portfolio"))
	}

	var invalid *models.ErrInvalidTransition
	if errors.As(err, &invalid) {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(invalid.Error()))
	}

	h.logger.Error("action failed",
		logger.String("signal_id", id),
		logger.String("action", string(req.Action)),
		logger.Error(err),
	)
	return xhttp.AppErrorResponse(c, xhttp.InternalError("action failed").WithError(err))
}

// GetSignal returns one signal.
func (h *SignalHandler) GetSignal(c echo.Context) error {
	sig, err := h.signals.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, drepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("signal not found"))
	}
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("signal lookup failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, sig)
}

// GetHistory returns a signal's audit trail.
func (h *SignalHandler) GetHistory(c echo.Context) error {
	acts, err := h.actions.History(c.Request().Context(), c.Param("id"))
	if errors.Is(err, drepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("signal not found"))
	}
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("history lookup failed").WithError(err))
	}
	return xhttp.ListResponse(c, acts, int64(len(acts)))
}

// ListPortfolioSignals returns every signal for a portfolio, oldest first.
func (h *SignalHandler) ListPortfolioSignals(c echo.Context) error {
	sigs, err := h.signals.ListByPortfolio(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("portfolio lookup failed").WithError(err))
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

// GetEffectiveCash returns the portfolio's raw cash and its spendable cash
// after reservations.
func (h *SignalHandler) GetEffectiveCash(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	raw, err := h.portfolios.RawCash(ctx, id)
	if errors.Is(err, drepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("portfolio not found"))
	}
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("cash lookup failed").WithError(err))
	}
	effective, err := h.ledger.EffectiveCash(ctx, id)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("cash lookup failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"portfolio_id":   id,
		"raw_cash":       raw,
		"effective_cash": effective,
	})
}

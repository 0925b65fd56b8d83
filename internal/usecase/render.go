package usecase

import (
	"fmt"
	"strings"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
)

func describeTrigger(t models.Trigger) string {
	switch t.Type {
	case models.TriggerLimit:
		return fmt.Sprintf("limit %.2f", t.Price)
	case models.TriggerZone:
		return fmt.Sprintf("zone %.2f-%.2f", t.Low, t.High)
	}
	return "at market"
}

// renderSignal builds the delivery payload for a signal. Recipients with a
// live execution gateway get an EXECUTE button; everyone else gets ACK for
// manual placement.
func renderSignal(sig *models.Signal, liveGateway bool) drepo.SignalMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %s (%s) %s\n", sig.Side, sig.Quantity, sig.Symbol, sig.Exchange, describeTrigger(sig.Trigger))
	fmt.Fprintf(&b, "confidence %d/100", sig.Confidence)
	if sig.Rationale != "" {
		fmt.Fprintf(&b, "\n%s", sig.Rationale)
	}
	if sig.NotifyCount > 0 {
		fmt.Fprintf(&b, "\n(reminder #%d)", sig.NotifyCount)
	}

	first := models.ActionAck
	if liveGateway {
		first = models.ActionExecute
	}
	return drepo.SignalMessage{
		Signal:  sig,
		Text:    b.String(),
		Actions: []models.Action{first, models.ActionSnooze, models.ActionDismiss},
	}
}

// renderPlacing is the button-disabled edit shown while an order is in
// flight at the gateway.
func renderPlacing(sig *models.Signal) drepo.SignalMessage {
	return drepo.SignalMessage{
		Signal: sig,
		Text: fmt.Sprintf("%s %d %s %s\nplacing order...",
			sig.Side, sig.Quantity, sig.Symbol, describeTrigger(sig.Trigger)),
	}
}

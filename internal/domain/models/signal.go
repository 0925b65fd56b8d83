package models

import "time"

// Side of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TriggerType describes the price condition a signal executes under.
type TriggerType string

const (
	TriggerMarket TriggerType = "market"
	TriggerLimit  TriggerType = "limit"
	TriggerZone   TriggerType = "zone"
)

// Trigger is the price condition attached to a signal.
// Limit uses Price; zone uses [Low, High]; market carries no price.
type Trigger struct {
	Type  TriggerType `json:"type"`
	Price float64     `json:"price,omitempty"`
	Low   float64     `json:"low,omitempty"`
	High  float64     `json:"high,omitempty"`
}

// ReferencePrice returns the price used for cash reservation and budget
// checks: the limit price, or the zone's lower bound. Market triggers have
// no usable reference price ahead of fill; ok is false.
func (t Trigger) ReferencePrice() (price float64, ok bool) {
	switch t.Type {
	case TriggerLimit:
		return t.Price, true
	case TriggerZone:
		return t.Low, true
	}
	return 0, false
}

// OrderState tracks the broker-side outcome of a signal's order link.
type OrderState string

const (
	OrderStateNone    OrderState = ""
	OrderStatePending OrderState = "pending"
	OrderStateFilled  OrderState = "filled"
	OrderStateFailed  OrderState = "failed"
)

// Signal is a proposed trade with a managed lifecycle. It holds at most one
// non-empty OrderID at a time; the link is cleared whenever the signal
// returns to PENDING.
type Signal struct {
	ID             string     `json:"id"`
	PortfolioID    string     `json:"portfolio_id"`
	Symbol         string     `json:"symbol"`
	Exchange       string     `json:"exchange"`
	Side           Side       `json:"side"`
	Quantity       int        `json:"quantity"`
	Trigger        Trigger    `json:"trigger"`
	Confidence     int        `json:"confidence"` // 0-100, from the recommendation source
	Rationale      string     `json:"rationale"`
	Status         Status     `json:"status"`
	NotifyCount    int        `json:"notify_count"`
	LastNotifiedAt *time.Time `json:"last_notified_at,omitempty"`
	OrderID        string     `json:"order_id,omitempty"`
	OrderState     OrderState `json:"order_state,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Reservation is the cash this signal claims while in a reserving state.
// Market BUY signals cannot be priced ahead of fill; lastQuote (0 when
// unknown) is used as a best-effort estimate.
func (s *Signal) Reservation(lastQuote float64) float64 {
	if s.Side != SideBuy || !s.Status.IsReserving() {
		return 0
	}
	ref, ok := s.Trigger.ReferencePrice()
	if !ok {
		ref = lastQuote
	}
	return float64(s.Quantity) * ref
}

// ClearOrderLink drops the execution-order link. Called on every return to
// PENDING.
func (s *Signal) ClearOrderLink() {
	s.OrderID = ""
	s.OrderState = OrderStateNone
}

// SignalAction is the append-only audit record written on every transition.
// Never mutated or deleted.
type SignalAction struct {
	ID        string    `json:"id"`
	SignalID  string    `json:"signal_id"`
	Action    Action    `json:"action"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Fill is a confirmed broker execution applied to the capital ledger.
type Fill struct {
	OrderID     string
	PortfolioID string
	Symbol      string
	Side        Side
	Quantity    int
	AvgPrice    float64
}

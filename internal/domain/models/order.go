package models

// OrderType is the execution gateway's order shape.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderRequest is sent to the execution gateway when a signal is executed.
// Market triggers map to market orders; limit triggers to limit orders at the
// limit price; zone triggers to limit orders at the zone's lower bound.
type OrderRequest struct {
	Symbol   string
	Exchange string
	Side     Side
	Type     OrderType
	Quantity int
	Price    float64 // zero for market orders
}

// OrderForTrigger maps a signal to the gateway order shape.
func OrderForTrigger(s *Signal) OrderRequest {
	req := OrderRequest{
		Symbol:   s.Symbol,
		Exchange: s.Exchange,
		Side:     s.Side,
		Type:     OrderTypeMarket,
		Quantity: s.Quantity,
	}
	switch s.Trigger.Type {
	case TriggerLimit:
		req.Type = OrderTypeLimit
		req.Price = s.Trigger.Price
	case TriggerZone:
		// lower bound is the more conservative entry
		req.Type = OrderTypeLimit
		req.Price = s.Trigger.Low
	}
	return req
}

// BrokerState is the gateway's view of an order.
type BrokerState string

const (
	BrokerOpen      BrokerState = "open"
	BrokerFilled    BrokerState = "filled"
	BrokerRejected  BrokerState = "rejected"
	BrokerCancelled BrokerState = "cancelled"
)

// Terminal reports whether the broker will not change this order further.
func (b BrokerState) Terminal() bool {
	return b == BrokerFilled || b == BrokerRejected || b == BrokerCancelled
}

// OrderAck is the gateway's immediate response to placement.
type OrderAck struct {
	OrderID string
	State   BrokerState
}

// OrderStatus is the gateway's authoritative order record, polled during
// reconciliation.
type OrderStatus struct {
	OrderID        string
	State          BrokerState
	FilledQuantity int
	AvgPrice       float64
	Message        string
}

package gateway

import (
	"context"
	"fmt"

	"SignalDesk/internal/domain/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

// Alpaca implements ExecutionGateway on the Alpaca trading API.
type Alpaca struct {
	client *alpaca.Client
}

// NewAlpaca creates an Alpaca-backed gateway.
func NewAlpaca(apiKey, apiSecret, baseURL string) *Alpaca {
	return &Alpaca{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
	}
}

func (g *Alpaca) PlaceOrder(_ context.Context, req models.OrderRequest) (models.OrderAck, error) {
	qty := decimal.NewFromInt(int64(req.Quantity))
	order := alpaca.PlaceOrderRequest{
		Symbol:      req.Symbol,
		Qty:         &qty,
		Side:        alpaca.Side(sideString(req.Side)),
		Type:        alpaca.OrderType(string(req.Type)),
		TimeInForce: alpaca.Day,
	}
	if req.Type == models.OrderTypeLimit {
		// round to avoid sub-penny increments the API rejects
		price := decimal.NewFromFloat(req.Price).Round(2)
		order.LimitPrice = &price
	}

	placed, err := g.client.PlaceOrder(order)
	if err != nil {
		return models.OrderAck{}, fmt.Errorf("alpaca place order: %w", err)
	}
	return models.OrderAck{OrderID: placed.ID, State: brokerState(string(placed.Status))}, nil
}

func (g *Alpaca) OrderStatus(_ context.Context, orderID string) (models.OrderStatus, error) {
	order, err := g.client.GetOrder(orderID)
	if err != nil {
		return models.OrderStatus{}, fmt.Errorf("alpaca get order: %w", err)
	}

	st := models.OrderStatus{
		OrderID: order.ID,
		State:   brokerState(string(order.Status)),
	}
	st.FilledQuantity = int(order.FilledQty.IntPart())
	if order.FilledAvgPrice != nil {
		st.AvgPrice, _ = order.FilledAvgPrice.Float64()
	}
	return st, nil
}

func (g *Alpaca) CancelOrder(_ context.Context, orderID string) error {
	if err := g.client.CancelOrder(orderID); err != nil {
		return fmt.Errorf("alpaca cancel order: %w", err)
	}
	return nil
}

func sideString(s models.Side) string {
	if s == models.SideSell {
		return "sell"
	}
	return "buy"
}

func brokerState(status string) models.BrokerState {
	switch status {
	case "filled":
		return models.BrokerFilled
	case "canceled", "done_for_day":
		return models.BrokerCancelled
	case "rejected", "expired":
		return models.BrokerRejected
	}
	return models.BrokerOpen
}

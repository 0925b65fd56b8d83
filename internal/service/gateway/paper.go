package gateway

import (
	"context"
	"fmt"
	"sync"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"

	"github.com/google/uuid"
)

// Paper is a simulated ExecutionGateway for dev mode. Orders fill at the
// requested limit price, or at the last quote for market orders.
type Paper struct {
	mu     sync.Mutex
	quotes drepo.QuoteSource
	orders map[string]models.OrderStatus
}

// NewPaper creates a paper gateway pricing market orders off quotes.
func NewPaper(quotes drepo.QuoteSource) *Paper {
	return &Paper{quotes: quotes, orders: make(map[string]models.OrderStatus)}
}

func (g *Paper) PlaceOrder(_ context.Context, req models.OrderRequest) (models.OrderAck, error) {
	price := req.Price
	if req.Type == models.OrderTypeMarket {
		q, ok := g.quotes.LastPrice(req.Symbol)
		if !ok {
			return models.OrderAck{}, fmt.Errorf("paper: no quote for %s", req.Symbol)
		}
		price = q
	}

	id := uuid.NewString()
	g.mu.Lock()
	g.orders[id] = models.OrderStatus{
		OrderID:        id,
		State:          models.BrokerFilled,
		FilledQuantity: req.Quantity,
		AvgPrice:       price,
	}
	g.mu.Unlock()

	return models.OrderAck{OrderID: id, State: models.BrokerFilled}, nil
}

func (g *Paper) OrderStatus(_ context.Context, orderID string) (models.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.orders[orderID]
	if !ok {
		return models.OrderStatus{}, fmt.Errorf("paper: unknown order %s", orderID)
	}
	return st, nil
}

func (g *Paper) CancelOrder(_ context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.orders[orderID]
	if !ok {
		return fmt.Errorf("paper: unknown order %s", orderID)
	}
	if st.State == models.BrokerOpen {
		st.State = models.BrokerCancelled
		g.orders[orderID] = st
	}
	return nil
}

package usecase

import (
	"context"
	"errors"
	"sync"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"
)

type nopMetrics struct{}

func (nopMetrics) RecordSignalCreated(string, string)  {}
func (nopMetrics) RecordNotification(string)           {}
func (nopMetrics) RecordOrderPlaced(string)            {}
func (nopMetrics) RecordRollback(string)               {}
func (nopMetrics) RecordExpiry()                       {}
func (nopMetrics) RecordEffectiveCash(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)       {}

// captureChannel records everything delivered and can fail on demand per
// signal id.
type captureChannel struct {
	mu          sync.Mutex
	delivered   []drepo.SignalMessage
	updated     []drepo.SignalMessage
	notices     []string
	failSignals map[string]bool
}

func newCaptureChannel() *captureChannel {
	return &captureChannel{failSignals: make(map[string]bool)}
}

func (c *captureChannel) Deliver(_ context.Context, _ string, msg drepo.SignalMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.Signal != nil && c.failSignals[msg.Signal.ID] {
		return errors.New("channel unavailable")
	}
	c.delivered = append(c.delivered, msg)
	return nil
}

func (c *captureChannel) Update(_ context.Context, _ string, msg drepo.SignalMessage) error {
	c.mu.Lock()
	c.updated = append(c.updated, msg)
	c.mu.Unlock()
	return nil
}

func (c *captureChannel) Notify(_ context.Context, _ string, text string) error {
	c.mu.Lock()
	c.notices = append(c.notices, text)
	c.mu.Unlock()
	return nil
}

func (c *captureChannel) deliveredFor(signalID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, msg := range c.delivered {
		if msg.Signal != nil && msg.Signal.ID == signalID {
			n++
		}
	}
	return n
}

// scriptedGateway returns a fixed ack on placement and scripted statuses on
// polling.
type scriptedGateway struct {
	mu       sync.Mutex
	placed   []models.OrderRequest
	ack      models.OrderAck
	placeErr error
	statuses map[string]models.OrderStatus
}

func newScriptedGateway(ack models.OrderAck) *scriptedGateway {
	return &scriptedGateway{ack: ack, statuses: make(map[string]models.OrderStatus)}
}

func (g *scriptedGateway) PlaceOrder(_ context.Context, req models.OrderRequest) (models.OrderAck, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.placeErr != nil {
		return models.OrderAck{}, g.placeErr
	}
	g.placed = append(g.placed, req)
	return g.ack, nil
}

func (g *scriptedGateway) OrderStatus(_ context.Context, orderID string) (models.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.statuses[orderID]
	if !ok {
		return models.OrderStatus{OrderID: orderID, State: models.BrokerOpen}, nil
	}
	return st, nil
}

func (g *scriptedGateway) CancelOrder(context.Context, string) error { return nil }

// scriptedSource returns a fixed proposal batch.
type scriptedSource struct {
	proposals []models.Proposal
	err       error
}

func (s *scriptedSource) Propose(context.Context, models.PortfolioContext) ([]models.Proposal, error) {
	return s.proposals, s.err
}

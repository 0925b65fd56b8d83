package models

// Proposal is one trade idea emitted by the recommendation source. The
// validator decides which proposals become persisted signals and at what
// quantity.
type Proposal struct {
	Symbol      string      `json:"symbol" validate:"required"`
	Exchange    string      `json:"exchange"`
	Side        Side        `json:"side" validate:"required,oneof=BUY SELL"`
	Quantity    int         `json:"quantity" validate:"required,gt=0"`
	TriggerType TriggerType `json:"trigger_type" validate:"required,oneof=market limit zone"`
	Price       float64     `json:"price,omitempty" validate:"gte=0"`
	Low         float64     `json:"low,omitempty" validate:"gte=0"`
	High        float64     `json:"high,omitempty" validate:"gte=0"`
	Confidence  int         `json:"confidence" validate:"gte=0,lte=100"`
	Rationale   string      `json:"rationale"`
}

// Trigger builds the trigger condition for the proposal.
func (p Proposal) ToTrigger() Trigger {
	switch p.TriggerType {
	case TriggerLimit:
		return Trigger{Type: TriggerLimit, Price: p.Price}
	case TriggerZone:
		return Trigger{Type: TriggerZone, Low: p.Low, High: p.High}
	}
	return Trigger{Type: TriggerMarket}
}

// ReferencePrice mirrors Trigger.ReferencePrice for a not-yet-persisted
// proposal.
func (p Proposal) ReferencePrice() (float64, bool) {
	return p.ToTrigger().ReferencePrice()
}

// PortfolioContext is the snapshot handed to the recommendation source when
// asking for proposals.
type PortfolioContext struct {
	PortfolioID   string         `json:"portfolio_id"`
	EffectiveCash float64        `json:"effective_cash"`
	Holdings      map[string]int `json:"holdings"`
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The alerts file is shared with the tool layer, which writes prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Condition is the direction a price must cross for an alert to fire.
type Condition string

const (
	ConditionAbove Condition = "above"
	ConditionBelow Condition = "below"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// Met evaluates the condition against the current price. Both directions are
// boundary-inclusive: a price exactly at the target fires the alert.
func (c Condition) Met(current, target decimal.Decimal) bool {
	switch c {
	case ConditionAbove:
		return current.GreaterThanOrEqual(target)
	case ConditionBelow:
		return current.LessThanOrEqual(target)
	default:
		return false
	}
}

// PriceAlert is a persisted request to be notified when a symbol crosses a price.
type PriceAlert struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Exchange    string          `json:"exchange,omitempty"`
	Condition   Condition       `json:"condition"`
	TargetPrice decimal.Decimal `json:"targetPrice"`
	CreatedAt   Millis          `json:"createdAt"`

	Triggered      bool             `json:"triggered,omitempty"`
	TriggeredAt    *Millis          `json:"triggeredAt,omitempty"`
	TriggeredPrice *decimal.Decimal `json:"triggeredPrice,omitempty"`
}

// MarkTriggered moves a pending alert to its terminal state, recording where
// and when it matched. It returns false if the alert had already triggered.
func (a *PriceAlert) MarkTriggered(exchange string, price decimal.Decimal, at time.Time) bool {
	if a.Triggered {
		return false
	}
	ts := NewMillis(at)
	a.Triggered = true
	a.TriggeredAt = &ts
	a.TriggeredPrice = &price
	a.Exchange = exchange
	return true
}

// AlertsDocument is the whole alerts file, loaded and saved as one unit.
type AlertsDocument struct {
	Alerts []PriceAlert `json:"alerts"`
}

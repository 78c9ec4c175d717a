package recorder

import (
	"time"

	"OmniTrade/internal/model"

	"github.com/shopspring/decimal"
)

// TriggerEvent holds everything known about one alert trigger.
type TriggerEvent struct {
	AlertID     string
	Symbol      string
	Exchange    string
	Condition   model.Condition
	TargetPrice decimal.Decimal
	Price       decimal.Decimal
	TriggeredAt time.Time
	Outcomes    []model.NotificationOutcome
}

// TriggerRecord is a stored trigger with its delivery summary.
type TriggerRecord struct {
	ID          int64
	AlertID     string
	Symbol      string
	Exchange    string
	Condition   model.Condition
	TargetPrice decimal.Decimal
	Price       decimal.Decimal
	TriggeredAt time.Time
	Delivered   int
	Failed      int
}

// Recorder persists trigger history for later inspection.
type Recorder interface {
	RecordTrigger(evt *TriggerEvent) error
	Close() error
}

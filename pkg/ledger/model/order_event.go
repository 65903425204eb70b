package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderEventType string

const (
	EventTypeSubmitted       OrderEventType = "Submitted"
	EventTypeStatusChange    OrderEventType = "StatusChange"
	EventTypeCancelRequested OrderEventType = "CancelRequested"
	EventTypeCancelForced    OrderEventType = "CancelForced"
)

// OrderEvent is one append-only audit row per ledger transition. Events are
// published to the message bus and persisted by the worker.
type OrderEvent struct {
	EventID       string          `gorm:"column:event_id;primaryKey" json:"event_id"`
	OrderID       int64           `gorm:"column:order_id;index" json:"order_id"`
	EventType     OrderEventType  `gorm:"column:event_type" json:"event_type"`
	Status        OrderStatus     `gorm:"column:status" json:"status"`
	BrokerOrderID string          `gorm:"column:broker_order_id" json:"broker_order_id,omitempty"`
	BrokerStatus  string          `gorm:"column:broker_status" json:"broker_status,omitempty"`
	LimitPrice    decimal.Decimal `gorm:"column:limit_price;type:numeric(18,4);default:0" json:"limit_price"`
	Note          string          `gorm:"column:note" json:"note,omitempty"`
	Timestamp     time.Time       `gorm:"column:timestamp" json:"timestamp"`
}

func (OrderEvent) TableName() string { return "order_events" }

// NewEventID makes event inserts idempotent per order and transition; the
// worker relies on the primary key to drop redelivered bus messages.
func NewEventID(orderID int64, eventType OrderEventType, status OrderStatus, ts time.Time) string {
	return fmt.Sprintf("%d-%s-%s-%d", orderID, eventType, status, ts.UnixNano())
}

func NewOrderEvent(o *Order, eventType OrderEventType, note string, ts time.Time) *OrderEvent {
	return &OrderEvent{
		EventID:       NewEventID(o.ID, eventType, o.Status, ts),
		OrderID:       o.ID,
		EventType:     eventType,
		Status:        o.Status,
		BrokerOrderID: o.BrokerOrderID,
		BrokerStatus:  o.BrokerStatus,
		LimitPrice:    o.LimitPrice,
		Note:          note,
		Timestamp:     ts,
	}
}

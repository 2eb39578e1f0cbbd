package model

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventOrderPlaced    EventType = "OrderPlaced"
	EventOrderRejected  EventType = "OrderRejected"
	EventOrderModified  EventType = "OrderModified"
	EventOrderCancelled EventType = "OrderCancelled"
	EventOrderFill      EventType = "OrderFill"
)

// OrderEvent is the payload crossing the event bus. Order is a value copy
// taken at publish time so subscribers never observe later mutation.
type OrderEvent struct {
	EventID       string      `gorm:"column:event_id;primaryKey"`
	Type          EventType   `gorm:"column:event_type"`
	Order         Order       `gorm:"embedded;embeddedPrefix:order_"`
	CorrelationID string      `gorm:"column:correlation_id;index"`
	Reason        string      `gorm:"column:reason"`
	PrevStatus    OrderStatus `gorm:"column:prev_status"`
	Timestamp     time.Time   `gorm:"column:event_time"`
}

func (OrderEvent) TableName() string { return "order_events" }

func NewOrderEvent(typ EventType, order Order, ts time.Time) *OrderEvent {
	return &OrderEvent{
		EventID:       NewEventID(order.ID, typ),
		Type:          typ,
		Order:         order,
		CorrelationID: order.CorrelationID,
		Timestamp:     ts,
	}
}

func NewEventID(orderID string, typ EventType) string {
	return fmt.Sprintf("%s-%s-%d", orderID, typ, time.Now().UnixNano())
}

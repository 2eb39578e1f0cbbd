package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusOpen           OrderStatus = "OPEN"
	OrderStatusTriggerPending OrderStatus = "TRIGGER_PENDING"
	OrderStatusPartial        OrderStatus = "PARTIAL"
	OrderStatusComplete       OrderStatus = "COMPLETE"
	OrderStatusRejected       OrderStatus = "REJECTED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// IsWorking reports whether the order is still live at the broker and
// therefore modifiable or cancellable.
func (s OrderStatus) IsWorking() bool {
	switch s {
	case OrderStatusOpen, OrderStatusTriggerPending, OrderStatusPartial:
		return true
	}
	return false
}

type AmendmentStatus string

const (
	AmendmentNone            AmendmentStatus = "NONE"
	AmendmentModifyRequested AmendmentStatus = "MODIFY_REQUESTED"
	AmendmentModifySent      AmendmentStatus = "MODIFY_SENT"
	AmendmentModifyRejected  AmendmentStatus = "MODIFY_REJECTED"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the flattening side for a filled leg.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStop       OrderType = "STOP"
	OrderTypeStopMarket OrderType = "STOP_MARKET"
)

// Priority orders the queue; lower ordinal is served first.
type Priority int

const (
	PriorityKillSwitch Priority = iota
	PriorityRiskExit
	PriorityStrategyExit
	PriorityStrategyAdjustment
	PriorityStrategyEntry
	PriorityManual
)

func (p Priority) String() string {
	switch p {
	case PriorityKillSwitch:
		return "KILL_SWITCH"
	case PriorityRiskExit:
		return "RISK_EXIT"
	case PriorityStrategyExit:
		return "STRATEGY_EXIT"
	case PriorityStrategyAdjustment:
		return "STRATEGY_ADJUSTMENT"
	case PriorityStrategyEntry:
		return "STRATEGY_ENTRY"
	case PriorityManual:
		return "MANUAL"
	}
	return "UNKNOWN"
}

// OrderRequest is an intent to trade. It is immutable once admitted by the
// router; empty Side or StrategyID means unknown/manual respectively.
type OrderRequest struct {
	Symbol        string
	Exchange      string
	Product       string
	Side          OrderSide
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	TriggerPrice  decimal.Decimal
	StrategyID    string
	CorrelationID string
}

// PrioritizedOrder wraps an admitted request with its queue ordering keys.
// Seq is assigned at enqueue and breaks FIFO ties within one priority.
type PrioritizedOrder struct {
	Request    *OrderRequest
	Priority   Priority
	Seq        int64
	EnqueuedAt time.Time
}

// Order is the domain record created by the dispatcher. The canonical copy
// lives in the order store; each mutator read-modify-writes it.
type Order struct {
	ID            string          `gorm:"column:id;primaryKey"`
	BrokerOrderID string          `gorm:"column:broker_order_id;index"`
	Symbol        string          `gorm:"column:symbol"`
	Exchange      string          `gorm:"column:exchange"`
	Product       string          `gorm:"column:product"`
	Side          OrderSide       `gorm:"column:side"`
	Type          OrderType       `gorm:"column:order_type"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:decimal(24,8)"`
	Price         decimal.Decimal `gorm:"column:price;type:decimal(24,8)"`
	TriggerPrice  decimal.Decimal `gorm:"column:trigger_price;type:decimal(24,8)"`
	FilledQty     decimal.Decimal `gorm:"column:filled_qty;type:decimal(24,8)"`
	AvgFillPrice  decimal.Decimal `gorm:"column:avg_fill_price;type:decimal(24,8)"`
	Status        OrderStatus     `gorm:"column:status;index"`
	AmendStatus   AmendmentStatus `gorm:"column:amend_status"`
	Reason        string          `gorm:"column:reason"`
	StrategyID    string          `gorm:"column:strategy_id;index"`
	CorrelationID string          `gorm:"column:correlation_id;index"`
	PlacedAt      *time.Time      `gorm:"column:placed_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

func (Order) TableName() string { return "orders" }

// Modification carries the requested amendment fields; nil means unchanged.
type Modification struct {
	Price        *decimal.Decimal
	TriggerPrice *decimal.Decimal
	Quantity     *decimal.Decimal
}

// Empty reports whether no field is set.
func (m *Modification) Empty() bool {
	return m == nil || (m.Price == nil && m.TriggerPrice == nil && m.Quantity == nil)
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is one incremental execution for an order. Quantity is the delta
// since the previous notification, which may be zero for a duplicate.
// Rows are append-only.
type Fill struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	BrokerOrderID string          `gorm:"column:broker_order_id;index"`
	Symbol        string          `gorm:"column:symbol"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:decimal(24,8)"`
	Price         decimal.Decimal `gorm:"column:price;type:decimal(24,8)"`
	Timestamp     time.Time       `gorm:"column:fill_time"`
}

func (Fill) TableName() string { return "fills" }

// PositionImpact classifies how a fill changed a position.
type PositionImpact string

const (
	PositionOpened    PositionImpact = "OPENED"
	PositionClosed    PositionImpact = "CLOSED"
	PositionIncreased PositionImpact = "INCREASED"
	PositionReduced   PositionImpact = "REDUCED"
)

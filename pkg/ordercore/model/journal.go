package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type JournalStatus string

const (
	JournalPending    JournalStatus = "PENDING"
	JournalInProgress JournalStatus = "IN_PROGRESS"
	JournalExecuted   JournalStatus = "EXECUTED"
	JournalFailed     JournalStatus = "FAILED"
	JournalSkipped    JournalStatus = "SKIPPED"
)

type OperationType string

const (
	OperationEntry      OperationType = "ENTRY"
	OperationAdjustment OperationType = "ADJUSTMENT"
	OperationExit       OperationType = "EXIT"
	OperationFlatten    OperationType = "KILL_SWITCH_FLATTEN"
)

// JournalEntry is one row of the multi-leg write-ahead journal. A row is
// written in PENDING before its leg is routed and always reaches a terminal
// status; rows are never deleted, they are the crash-recovery ledger.
type JournalEntry struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	GroupID       string          `gorm:"column:group_id;index"`
	Operation     OperationType   `gorm:"column:operation"`
	LegIndex      int             `gorm:"column:leg_index"`
	TotalLegs     int             `gorm:"column:total_legs"`
	Symbol        string          `gorm:"column:symbol"`
	Side          OrderSide       `gorm:"column:side"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:decimal(24,8)"`
	Price         decimal.Decimal `gorm:"column:price;type:decimal(24,8)"`
	BrokerOrderID string          `gorm:"column:broker_order_id"`
	Status        JournalStatus   `gorm:"column:status;index"`
	Reason        string          `gorm:"column:reason"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

func (JournalEntry) TableName() string { return "execution_journal" }

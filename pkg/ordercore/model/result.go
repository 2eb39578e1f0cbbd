package model

import "time"

// RouteResult is the synchronous outcome of one admission attempt. OrderID
// stays empty at admission time; the dispatcher assigns ids when it builds
// the domain order.
type RouteResult struct {
	Accepted bool
	OrderID  string
	Reason   string
}

// AmendResult is the synchronous outcome of one modification attempt.
type AmendResult struct {
	Accepted bool
	Reason   string
}

// LegResult reports one leg of a multi-leg operation: an executed leg
// carries its broker tag, a failed or skipped leg carries the reason.
type LegResult struct {
	Index  int
	Status JournalStatus
	Tag    string
	Reason string
}

// MultiLegResult is the overall outcome of a multi-leg operation.
type MultiLegResult struct {
	Success bool
	GroupID string
	Legs    []LegResult
}

// Decision is one audit row of the admission/lifecycle decision log.
type Decision struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Kind          string    `gorm:"column:kind"`
	CorrelationID string    `gorm:"column:correlation_id;index"`
	StrategyID    string    `gorm:"column:strategy_id;index"`
	Priority      string    `gorm:"column:priority"`
	Accepted      bool      `gorm:"column:accepted"`
	Reason        string    `gorm:"column:reason"`
	Timestamp     time.Time `gorm:"column:decision_time"`
}

func (Decision) TableName() string { return "decision_log" }

// Decision kinds.
const (
	DecisionRoute      = "ROUTE"
	DecisionKillSwitch = "KILL_SWITCH"
	DecisionAmendment  = "AMENDMENT"
	DecisionTimeout    = "TIMEOUT"
	DecisionMultiLeg   = "MULTI_LEG"
)

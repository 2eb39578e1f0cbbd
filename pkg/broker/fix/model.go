package fixgateway

import (
	"time"

	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// ExecReport is the decoded subset of a FIX ExecutionReport the order core
// cares about. ClOrdID carries our internal order id.
type ExecReport struct {
	ClOrdID       string
	OrigClOrdID   string
	BrokerOrderID string
	ExecType      enum.ExecType
	OrdStatus     enum.OrdStatus
	Symbol        string
	Side          enum.Side
	OrderQty      decimal.Decimal
	CumQty        decimal.Decimal
	AvgPx         decimal.Decimal
	LastQty       decimal.Decimal
	LastPx        decimal.Decimal
	Text          string
	TransactTime  time.Time
}

// Rejected reports whether the broker refused the request this report
// answers.
func (r *ExecReport) Rejected() bool {
	return r.OrdStatus == enum.OrdStatus_REJECTED || r.ExecType == enum.ExecType_REJECTED
}

var sideMapping = map[model.OrderSide]enum.Side{
	model.OrderSideBuy:  enum.Side_BUY,
	model.OrderSideSell: enum.Side_SELL,
}

var sideReverse = map[enum.Side]model.OrderSide{
	enum.Side_BUY:  model.OrderSideBuy,
	enum.Side_SELL: model.OrderSideSell,
}

var ordTypeMapping = map[model.OrderType]enum.OrdType{
	model.OrderTypeMarket:     enum.OrdType_MARKET,
	model.OrderTypeLimit:      enum.OrdType_LIMIT,
	model.OrderTypeStop:       enum.OrdType_STOP_LIMIT,
	model.OrderTypeStopMarket: enum.OrdType_STOP,
}

// ToOrder converts a report into the broker's view of the order record.
func (r *ExecReport) ToOrder() model.Order {
	o := model.Order{
		ID:            r.ClOrdID,
		BrokerOrderID: r.BrokerOrderID,
		Symbol:        r.Symbol,
		Side:          sideReverse[r.Side],
		FilledQty:     r.CumQty,
		AvgFillPrice:  r.AvgPx,
		Reason:        r.Text,
		UpdatedAt:     r.TransactTime,
	}
	switch r.OrdStatus {
	case enum.OrdStatus_NEW:
		o.Status = model.OrderStatusOpen
	case enum.OrdStatus_PARTIALLY_FILLED:
		o.Status = model.OrderStatusPartial
	case enum.OrdStatus_FILLED:
		o.Status = model.OrderStatusComplete
	case enum.OrdStatus_CANCELED:
		o.Status = model.OrderStatusCancelled
	case enum.OrdStatus_REJECTED:
		o.Status = model.OrderStatusRejected
	default:
		o.Status = model.OrderStatusPending
	}
	return o
}

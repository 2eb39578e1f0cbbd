package fixgateway

import (
	"testing"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

func TestExecReportToOrder(t *testing.T) {
	ts := time.Now()
	r := &ExecReport{
		ClOrdID:       "O1",
		BrokerOrderID: "B1",
		Symbol:        "NIFTY",
		Side:          enum.Side_BUY,
		OrdStatus:     enum.OrdStatus_PARTIALLY_FILLED,
		CumQty:        decimal.NewFromInt(20),
		AvgPx:         decimal.NewFromFloat(101.5),
		TransactTime:  ts,
	}

	o := r.ToOrder()
	if o.ID != "O1" || o.BrokerOrderID != "B1" {
		t.Errorf("ids not mapped: %+v", o)
	}
	if o.Side != model.OrderSideBuy {
		t.Errorf("side not mapped: %s", o.Side)
	}
	if o.Status != model.OrderStatusPartial {
		t.Errorf("expected PARTIAL, got %s", o.Status)
	}
	if !o.FilledQty.Equal(decimal.NewFromInt(20)) {
		t.Errorf("cum qty not mapped: %s", o.FilledQty)
	}
}

func TestExecReportStatusMapping(t *testing.T) {
	cases := map[enum.OrdStatus]model.OrderStatus{
		enum.OrdStatus_NEW:              model.OrderStatusOpen,
		enum.OrdStatus_PARTIALLY_FILLED: model.OrderStatusPartial,
		enum.OrdStatus_FILLED:           model.OrderStatusComplete,
		enum.OrdStatus_CANCELED:         model.OrderStatusCancelled,
		enum.OrdStatus_REJECTED:         model.OrderStatusRejected,
		enum.OrdStatus_PENDING_NEW:      model.OrderStatusPending,
	}
	for ordStatus, want := range cases {
		r := &ExecReport{OrdStatus: ordStatus}
		if got := r.ToOrder().Status; got != want {
			t.Errorf("%s: expected %s, got %s", ordStatus, want, got)
		}
	}
}

func TestExecReportRejected(t *testing.T) {
	if !(&ExecReport{OrdStatus: enum.OrdStatus_REJECTED}).Rejected() {
		t.Error("OrdStatus REJECTED not detected")
	}
	if !(&ExecReport{ExecType: enum.ExecType_REJECTED}).Rejected() {
		t.Error("ExecType REJECTED not detected")
	}
	if (&ExecReport{OrdStatus: enum.OrdStatus_NEW, ExecType: enum.ExecType_NEW}).Rejected() {
		t.Error("accepted report flagged as rejected")
	}
}

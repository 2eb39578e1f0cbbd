package fill

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/ordercore/model"
	"github.com/openquant/ordercore/pkg/ordercore/repo"
)

func newTestAggregator() (*Aggregator, *repo.InMemoryFillStore, *repo.InMemoryOrderStore) {
	fills := repo.NewInMemoryFillStore()
	orders := repo.NewInMemoryOrderStore()
	return NewAggregator(fills, orders, zap.NewNop()), fills, orders
}

func filledOrder(brokerID string, filled int64, avg float64) *model.Order {
	return &model.Order{
		ID:            "ORD-" + brokerID,
		BrokerOrderID: brokerID,
		Symbol:        "NIFTY",
		FilledQty:     decimal.NewFromInt(filled),
		AvgFillPrice:  decimal.NewFromFloat(avg),
		Status:        model.OrderStatusPartial,
		UpdatedAt:     time.Now(),
	}
}

func TestCreateFillRecordIncremental(t *testing.T) {
	a, fills, _ := newTestAggregator()
	ctx := context.Background()

	// First notification: 30 filled cumulative.
	rec, err := a.CreateFillRecord(ctx, filledOrder("B1", 30, 100.0))
	if err != nil {
		t.Fatalf("create fill: %v", err)
	}
	if !rec.Quantity.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected delta 30, got %s", rec.Quantity)
	}
	fills.Save(ctx, rec)

	// Second notification: 50 cumulative, so the delta is 20.
	rec, err = a.CreateFillRecord(ctx, filledOrder("B1", 50, 101.0))
	if err != nil {
		t.Fatalf("create fill: %v", err)
	}
	if !rec.Quantity.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected delta 20, got %s", rec.Quantity)
	}
	fills.Save(ctx, rec)

	// Duplicate notification for the same cumulative quantity.
	rec, err = a.CreateFillRecord(ctx, filledOrder("B1", 50, 101.0))
	if err != nil {
		t.Fatalf("create fill: %v", err)
	}
	if !rec.Quantity.IsZero() {
		t.Errorf("duplicate notification must yield zero delta, got %s", rec.Quantity)
	}
}

func TestCreateFillRecordClampsNegative(t *testing.T) {
	a, fills, _ := newTestAggregator()
	ctx := context.Background()

	fills.Save(ctx, &model.Fill{
		BrokerOrderID: "B1",
		Quantity:      decimal.NewFromInt(60),
		Price:         decimal.NewFromFloat(100.0),
	})

	rec, err := a.CreateFillRecord(ctx, filledOrder("B1", 50, 100.0))
	if err != nil {
		t.Fatalf("create fill: %v", err)
	}
	if !rec.Quantity.IsZero() {
		t.Errorf("out-of-order cumulative must clamp to zero, got %s", rec.Quantity)
	}
}

func TestCalculateVwap(t *testing.T) {
	fills := []*model.Fill{
		{Quantity: decimal.NewFromInt(100), Price: decimal.NewFromFloat(168.0)},
		{Quantity: decimal.NewFromInt(100), Price: decimal.NewFromFloat(172.0)},
	}
	vwap := CalculateVwap(fills)
	if !vwap.Equal(decimal.NewFromFloat(170.0)) {
		t.Errorf("expected vwap 170, got %s", vwap)
	}

	uneven := []*model.Fill{
		{Quantity: decimal.NewFromInt(300), Price: decimal.NewFromFloat(10.0)},
		{Quantity: decimal.NewFromInt(100), Price: decimal.NewFromFloat(14.0)},
	}
	if vwap := CalculateVwap(uneven); !vwap.Equal(decimal.NewFromFloat(11.0)) {
		t.Errorf("expected vwap 11, got %s", vwap)
	}
}

func TestCalculateVwapEmpty(t *testing.T) {
	if vwap := CalculateVwap(nil); !vwap.IsZero() {
		t.Errorf("expected zero for no fills, got %s", vwap)
	}
	// Zero-quantity rows alone must not divide by zero.
	zeroOnly := []*model.Fill{{Quantity: decimal.Zero, Price: decimal.NewFromFloat(100.0)}}
	if vwap := CalculateVwap(zeroOnly); !vwap.IsZero() {
		t.Errorf("expected zero for zero-quantity fills, got %s", vwap)
	}
}

func TestDeterminePositionImpact(t *testing.T) {
	d := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

	cases := []struct {
		name     string
		newQty   decimal.Decimal
		oldQty   decimal.Decimal
		expected model.PositionImpact
	}{
		{"flat to long", d(5), d(0), model.PositionOpened},
		{"flat to short", d(-5), d(0), model.PositionOpened},
		{"long to flat", d(0), d(5), model.PositionClosed},
		{"short to flat", d(0), d(-5), model.PositionClosed},
		{"long increased", d(8), d(5), model.PositionIncreased},
		{"long reduced", d(3), d(5), model.PositionReduced},
		{"short increased", d(-8), d(-5), model.PositionIncreased},
		{"short reduced", d(-3), d(-5), model.PositionReduced},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeterminePositionImpact(tc.newQty, tc.oldQty); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestOnFillEventPersists(t *testing.T) {
	a, fills, orders := newTestAggregator()
	ctx := context.Background()

	order := filledOrder("B1", 30, 100.0)
	ev := model.NewOrderEvent(model.EventOrderFill, *order, time.Now())
	a.OnFillEvent(ctx, ev)

	stored, _ := fills.FindByOrderID(ctx, "B1")
	if len(stored) != 1 {
		t.Fatalf("expected 1 fill row, got %d", len(stored))
	}
	if !stored[0].Quantity.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected fill qty 30, got %s", stored[0].Quantity)
	}

	saved, _ := orders.FindByID(ctx, order.ID)
	if saved == nil {
		t.Fatal("order not written back")
	}
	if !saved.FilledQty.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected filled qty 30, got %s", saved.FilledQty)
	}
}

// Package fill consumes fill events: the aggregator keeps incremental fill
// bookkeeping, the correlator lets callers await a group of fills.
package fill

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/eventbus"
	"github.com/openquant/ordercore/pkg/ordercore"
	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// Aggregator turns cumulative broker fill notifications into incremental
// fill rows and keeps the order record current.
type Aggregator struct {
	fills  ordercore.FillStore
	orders ordercore.OrderStore
	logger *zap.Logger
}

func NewAggregator(fills ordercore.FillStore, orders ordercore.OrderStore, logger *zap.Logger) *Aggregator {
	return &Aggregator{fills: fills, orders: orders, logger: logger}
}

// CreateFillRecord computes the incremental quantity as the order's total
// filled quantity minus the sum of previously recorded fills. A duplicate
// notification for the same cumulative quantity yields a zero-quantity row.
func (a *Aggregator) CreateFillRecord(ctx context.Context, order *model.Order) (*model.Fill, error) {
	previous, err := a.fills.FindByOrderID(ctx, order.BrokerOrderID)
	if err != nil {
		return nil, err
	}

	recorded := decimal.Zero
	for _, f := range previous {
		recorded = recorded.Add(f.Quantity)
	}

	delta := order.FilledQty.Sub(recorded)
	if delta.IsNegative() {
		delta = decimal.Zero
	}

	return &model.Fill{
		BrokerOrderID: order.BrokerOrderID,
		Symbol:        order.Symbol,
		Quantity:      delta,
		Price:         order.AvgFillPrice,
		Timestamp:     order.UpdatedAt,
	}, nil
}

// CalculateVwap returns sum(qty*price)/sum(qty), zero for no fills.
func CalculateVwap(fills []*model.Fill) decimal.Decimal {
	notional := decimal.Zero
	qty := decimal.Zero
	for _, f := range fills {
		notional = notional.Add(f.Quantity.Mul(f.Price))
		qty = qty.Add(f.Quantity)
	}
	if qty.IsZero() {
		return decimal.Zero
	}
	return notional.Div(qty)
}

// DeterminePositionImpact classifies a position change by comparing signed
// quantities; magnitudes make the classification symmetric for shorts.
func DeterminePositionImpact(newQty, oldQty decimal.Decimal) model.PositionImpact {
	switch {
	case newQty.IsZero():
		return model.PositionClosed
	case oldQty.IsZero():
		return model.PositionOpened
	case newQty.Abs().GreaterThan(oldQty.Abs()):
		return model.PositionIncreased
	default:
		return model.PositionReduced
	}
}

// OnFillEvent persists the incremental fill row and writes the updated
// order back to the store.
func (a *Aggregator) OnFillEvent(ctx context.Context, ev *model.OrderEvent) {
	order := ev.Order
	rec, err := a.CreateFillRecord(ctx, &order)
	if err != nil {
		a.logger.Error("create fill record failed",
			zap.String("broker_order_id", order.BrokerOrderID), zap.Error(err))
		return
	}
	if err := a.fills.Save(ctx, rec); err != nil {
		a.logger.Error("persist fill failed",
			zap.String("broker_order_id", order.BrokerOrderID), zap.Error(err))
		return
	}
	if err := a.orders.Save(ctx, &order); err != nil {
		a.logger.Error("persist order failed",
			zap.String("order_id", order.ID), zap.Error(err))
	}
}

// Run subscribes the aggregator to the bus until ctx is done.
func (a *Aggregator) Run(ctx context.Context, bus eventbus.Bus) {
	ch, unsubscribe := bus.Subscribe(256)
	go func() {
		defer unsubscribe()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if ev != nil && ev.Type == model.EventOrderFill {
					a.OnFillEvent(ctx, ev)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

package ordercore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/eventbus"
	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// BrokerFillListener turns the broker's unsolicited fill reports into fill
// events on the bus. The broker view carries our internal order id plus
// cumulative quantity and average price; the aggregator downstream owns
// persistence of the fill row and the updated order.
type BrokerFillListener struct {
	orders OrderStore
	bus    eventbus.Bus
	logger *zap.Logger
}

func NewBrokerFillListener(orders OrderStore, bus eventbus.Bus, logger *zap.Logger) *BrokerFillListener {
	return &BrokerFillListener{orders: orders, bus: bus, logger: logger}
}

func (l *BrokerFillListener) OnBrokerReport(ctx context.Context, view model.Order) {
	if view.ID == "" {
		return
	}
	order, err := l.orders.FindByID(ctx, view.ID)
	if err != nil {
		l.logger.Error("load order for fill failed",
			zap.String("order_id", view.ID), zap.Error(err))
		return
	}
	if order == nil {
		l.logger.Warn("fill report for unknown order", zap.String("order_id", view.ID))
		return
	}

	order.FilledQty = view.FilledQty
	order.AvgFillPrice = view.AvgFillPrice
	if view.Status == model.OrderStatusPartial || view.Status == model.OrderStatusComplete {
		order.Status = view.Status
	}
	order.UpdatedAt = time.Now()

	l.bus.Publish(model.NewOrderEvent(model.EventOrderFill, *order, order.UpdatedAt))
}

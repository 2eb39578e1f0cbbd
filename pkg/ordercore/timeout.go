package ordercore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/audit"
	"github.com/openquant/ordercore/pkg/broker"
	"github.com/openquant/ordercore/pkg/calendar"
	"github.com/openquant/ordercore/pkg/eventbus"
	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// Per-type staleness windows. Stop orders rest until session close and take
// their window from the trading calendar at check time.
const (
	marketTimeout = 10 * time.Second
	limitTimeout  = 30 * time.Second
)

// TimeoutMonitor detects stale pending orders and force-cancels them at the
// broker. CheckTimeouts is driven by an external scheduler.
type TimeoutMonitor struct {
	orders   OrderStore
	gateway  broker.Gateway
	calendar calendar.TradingCalendar
	bus      eventbus.Bus
	recorder audit.Recorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewTimeoutMonitor(orders OrderStore, gateway broker.Gateway, cal calendar.TradingCalendar,
	bus eventbus.Bus, recorder audit.Recorder, logger *zap.Logger) *TimeoutMonitor {
	return &TimeoutMonitor{
		orders:   orders,
		gateway:  gateway,
		calendar: cal,
		bus:      bus,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

func (m *TimeoutMonitor) window(orderType model.OrderType) time.Duration {
	switch orderType {
	case model.OrderTypeMarket:
		return marketTimeout
	case model.OrderTypeLimit:
		return limitTimeout
	case model.OrderTypeStop, model.OrderTypeStopMarket:
		return time.Duration(m.calendar.MinutesToClose()) * time.Minute
	}
	return limitTimeout
}

// IsTimedOut reports whether the order exceeded its type-specific window at
// the given instant. An order with no placement timestamp never times out.
func (m *TimeoutMonitor) IsTimedOut(order *model.Order, now time.Time) bool {
	if order.PlacedAt == nil {
		return false
	}
	return now.Sub(*order.PlacedAt) >= m.window(order.Type)
}

// CheckTimeouts scans all pending orders and force-cancels the stale ones.
func (m *TimeoutMonitor) CheckTimeouts(ctx context.Context) {
	pending, err := m.orders.FindPending(ctx)
	if err != nil {
		m.logger.Error("scan pending orders failed", zap.Error(err))
		return
	}

	now := m.now()
	for _, order := range pending {
		if !m.IsTimedOut(order, now) {
			continue
		}
		m.cancel(ctx, order)
	}
}

func (m *TimeoutMonitor) cancel(ctx context.Context, order *model.Order) {
	if err := m.gateway.CancelOrder(ctx, order.BrokerOrderID); err != nil {
		m.logger.Warn("broker cancel failed",
			zap.String("order_id", order.ID),
			zap.String("broker_order_id", order.BrokerOrderID),
			zap.Error(err))
		return
	}

	prev := order.Status
	order.Status = model.OrderStatusCancelled
	order.Reason = "timed out"
	order.UpdatedAt = m.now()
	if err := m.orders.Save(ctx, order); err != nil {
		m.logger.Error("persist cancelled order failed",
			zap.String("order_id", order.ID), zap.Error(err))
	}

	ev := model.NewOrderEvent(model.EventOrderCancelled, *order, order.UpdatedAt)
	ev.PrevStatus = prev
	m.bus.Publish(ev)

	m.recorder.Record(ctx, &model.Decision{
		Kind:          model.DecisionTimeout,
		CorrelationID: order.CorrelationID,
		StrategyID:    order.StrategyID,
		Accepted:      true,
		Reason:        "order timed out, cancelled at broker",
		Timestamp:     m.now(),
	})

	m.logger.Info("stale order cancelled",
		zap.String("order_id", order.ID),
		zap.String("order_type", string(order.Type)),
		zap.String("prev_status", string(prev)))
}

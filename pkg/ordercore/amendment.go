package ordercore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/audit"
	"github.com/openquant/ordercore/pkg/broker"
	"github.com/openquant/ordercore/pkg/eventbus"
	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// AmendmentService executes in-flight order modifications as a small state
// machine over the order's amendment sub-status. Callers must not issue
// concurrent amendments against one order; the sub-status check enforces it.
type AmendmentService struct {
	orders   OrderStore
	gateway  broker.Gateway
	bus      eventbus.Bus
	recorder audit.Recorder
	logger   *zap.Logger
}

func NewAmendmentService(orders OrderStore, gateway broker.Gateway, bus eventbus.Bus,
	recorder audit.Recorder, logger *zap.Logger) *AmendmentService {
	return &AmendmentService{
		orders:   orders,
		gateway:  gateway,
		bus:      bus,
		recorder: recorder,
		logger:   logger,
	}
}

// ModifyOrder validates and applies one modification. All failures are
// result values; the order's tradable fields change only after the broker
// accepted the modification.
func (s *AmendmentService) ModifyOrder(ctx context.Context, orderID string, mod *model.Modification) model.AmendResult {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil || order == nil {
		return s.reject(ctx, orderID, nil, reasonOrderNotFound)
	}

	if !order.Status.IsWorking() {
		return s.reject(ctx, orderID, order, reasonNotModifiable)
	}
	if order.AmendStatus == model.AmendmentModifyRequested || order.AmendStatus == model.AmendmentModifySent {
		return s.reject(ctx, orderID, order, reasonAmendInProgress)
	}
	if reason := validateModification(order, mod); reason != "" {
		return s.reject(ctx, orderID, order, reason)
	}

	order.AmendStatus = model.AmendmentModifyRequested
	order.UpdatedAt = time.Now()
	s.persist(ctx, order)

	order.AmendStatus = model.AmendmentModifySent
	if err := s.gateway.ModifyOrder(ctx, order.BrokerOrderID, mod); err != nil {
		// Tradable fields stay untouched; only the sub-status records the
		// failed attempt.
		order.AmendStatus = model.AmendmentModifyRejected
		order.Reason = err.Error()
		order.UpdatedAt = time.Now()
		s.persist(ctx, order)
		return s.reject(ctx, orderID, order, err.Error())
	}

	if mod.Price != nil {
		order.Price = *mod.Price
	}
	if mod.TriggerPrice != nil {
		order.TriggerPrice = *mod.TriggerPrice
	}
	if mod.Quantity != nil {
		order.Quantity = *mod.Quantity
	}
	order.AmendStatus = model.AmendmentNone
	order.UpdatedAt = time.Now()
	s.persist(ctx, order)

	s.bus.Publish(model.NewOrderEvent(model.EventOrderModified, *order, time.Now()))
	s.record(ctx, order, true, "")
	s.logger.Info("order modified",
		zap.String("order_id", order.ID),
		zap.String("broker_order_id", order.BrokerOrderID))
	return model.AmendResult{Accepted: true}
}

func validateModification(order *model.Order, mod *model.Modification) string {
	if mod.Empty() {
		return reasonEmptyAmendment
	}
	if mod.Price != nil && !mod.Price.IsPositive() {
		return reasonBadPrice
	}
	if mod.TriggerPrice != nil && !mod.TriggerPrice.IsPositive() {
		return reasonBadTrigger
	}
	if mod.Quantity != nil {
		if !mod.Quantity.IsPositive() {
			return reasonBadQuantity
		}
		if !mod.Quantity.GreaterThan(order.FilledQty) {
			return reasonQtyBelowFilled
		}
	}
	return ""
}

func (s *AmendmentService) reject(ctx context.Context, orderID string, order *model.Order, reason string) model.AmendResult {
	s.record(ctx, order, false, reason)
	s.logger.Info("amendment rejected",
		zap.String("order_id", orderID),
		zap.String("reason", reason))
	return model.AmendResult{Reason: reason}
}

func (s *AmendmentService) record(ctx context.Context, order *model.Order, accepted bool, reason string) {
	d := &model.Decision{
		Kind:      model.DecisionAmendment,
		Accepted:  accepted,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	if order != nil {
		d.CorrelationID = order.CorrelationID
		d.StrategyID = order.StrategyID
	}
	s.recorder.Record(ctx, d)
}

func (s *AmendmentService) persist(ctx context.Context, order *model.Order) {
	if err := s.orders.Save(ctx, order); err != nil {
		s.logger.Error("persist order failed",
			zap.String("order_id", order.ID), zap.Error(err))
	}
}

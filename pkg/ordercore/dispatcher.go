package ordercore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/broker"
	"github.com/openquant/ordercore/pkg/eventbus"
	"github.com/openquant/ordercore/pkg/ordercore/idempotency"
	"github.com/openquant/ordercore/pkg/ordercore/model"
	"github.com/openquant/ordercore/pkg/ordercore/queue"
)

// Dispatcher is the single consumer of the priority queue. One goroutine
// drains admitted requests and submits them to the broker, which keeps
// broker submission strictly sequenced without further locking.
type Dispatcher struct {
	queue   *queue.PriorityQueue
	gateway broker.Gateway
	orders  OrderStore
	guard   *idempotency.Guard
	bus     eventbus.Bus
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewDispatcher(q *queue.PriorityQueue, gateway broker.Gateway, orders OrderStore,
	guard *idempotency.Guard, bus eventbus.Bus, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		queue:   q,
		gateway: gateway,
		orders:  orders,
		guard:   guard,
		bus:     bus,
		logger:  logger,
	}
}

// Start launches the consumer loop. Repeated calls are no-ops.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running = true
	go d.loop(ctx)
	d.logger.Info("dispatcher started")
}

// Stop signals the loop, waits for it to exit, then drains everything still
// obtainable via Poll so no admitted order is lost on shutdown. Repeated
// calls are no-ops.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	done := d.done
	d.mu.Unlock()

	<-done

	drained := 0
	for {
		po := d.queue.Poll()
		if po == nil {
			break
		}
		d.process(context.Background(), po)
		drained++
	}
	d.logger.Info("dispatcher stopped", zap.Int("drained", drained))
}

func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)
	for {
		po, err := d.queue.Take(ctx)
		if err != nil {
			return
		}
		// Only Take observes the stop cancellation. Once an order is taken
		// its broker call runs to completion; cancelling mid-flight would
		// record REJECTED for a message the broker may already have
		// accepted, and the unmarked guard would then let a duplicate in.
		d.process(context.WithoutCancel(ctx), po)
	}
}

func (d *Dispatcher) process(ctx context.Context, po *model.PrioritizedOrder) {
	req := po.Request
	now := time.Now()
	order := &model.Order{
		ID:            uuid.New().String(),
		Symbol:        req.Symbol,
		Exchange:      req.Exchange,
		Product:       req.Product,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         req.Price,
		TriggerPrice:  req.TriggerPrice,
		Status:        model.OrderStatusPending,
		AmendStatus:   model.AmendmentNone,
		StrategyID:    req.StrategyID,
		CorrelationID: req.CorrelationID,
		UpdatedAt:     now,
	}

	brokerID, err := d.gateway.PlaceOrder(ctx, order)
	if err != nil {
		// The guard is deliberately not marked here: a broker failure must
		// not block a legitimate resubmission of the same logical order.
		order.Status = model.OrderStatusRejected
		order.Reason = err.Error()
		order.UpdatedAt = time.Now()
		d.persist(ctx, order)

		ev := model.NewOrderEvent(model.EventOrderRejected, *order, time.Now())
		ev.Reason = err.Error()
		d.bus.Publish(ev)

		d.logger.Warn("order rejected by broker",
			zap.String("order_id", order.ID),
			zap.String("symbol", order.Symbol),
			zap.String("reason", err.Error()))
		return
	}

	placedAt := time.Now()
	order.BrokerOrderID = brokerID
	order.Status = model.OrderStatusOpen
	if req.Type == model.OrderTypeStop || req.Type == model.OrderTypeStopMarket {
		order.Status = model.OrderStatusTriggerPending
	}
	order.PlacedAt = &placedAt
	order.UpdatedAt = placedAt
	d.persist(ctx, order)

	d.bus.Publish(model.NewOrderEvent(model.EventOrderPlaced, *order, placedAt))
	d.guard.MarkProcessed(ctx, req)

	d.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("broker_order_id", brokerID),
		zap.String("symbol", order.Symbol),
		zap.String("priority", po.Priority.String()))
}

func (d *Dispatcher) persist(ctx context.Context, order *model.Order) {
	if err := d.orders.Save(ctx, order); err != nil {
		d.logger.Error("persist order failed",
			zap.String("order_id", order.ID), zap.Error(err))
	}
}

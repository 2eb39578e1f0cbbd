package fill

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/eventbus"
	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// Correlator is an async primitive for callers that must wait until a group
// of orders sharing one correlation id has fully filled. The wait completes
// from whatever goroutine delivers the matching event, never the waiter.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*pendingWait
	logger  *zap.Logger
}

type pendingWait struct {
	remaining int
	result    chan error
}

func NewCorrelator(logger *zap.Logger) *Correlator {
	return &Correlator{
		pending: make(map[string]*pendingWait),
		logger:  logger,
	}
}

// AwaitFills registers a wait for expectedCount terminal fills under one
// correlation id. The returned channel yields nil once enough fills arrive,
// or the rejection reason as an error if any order in the group is
// rejected first. Registering again for a live id completes the displaced
// wait with an error so its waiter is never stranded.
func (c *Correlator) AwaitFills(correlationID string, expectedCount int) <-chan error {
	result := make(chan error, 1)
	if expectedCount <= 0 {
		result <- nil
		return result
	}

	c.mu.Lock()
	if old, ok := c.pending[correlationID]; ok {
		// The old result channel is buffered and has never been written
		// to while still registered, so this cannot block.
		old.result <- fmt.Errorf("wait for %s superseded by a new registration", correlationID)
		c.logger.Warn("pending wait superseded", zap.String("correlation_id", correlationID))
	}
	c.pending[correlationID] = &pendingWait{remaining: expectedCount, result: result}
	c.mu.Unlock()
	return result
}

// CancelAwait drops a pending wait; unknown ids are a no-op.
func (c *Correlator) CancelAwait(correlationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, correlationID)
}

// PendingCount reports the number of distinct in-flight waits.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// OnEvent feeds one event into the correlator. Events without an order or
// correlation id, or for unregistered ids, are ignored.
func (c *Correlator) OnEvent(ev *model.OrderEvent) {
	if ev == nil || ev.CorrelationID == "" {
		return
	}

	switch ev.Type {
	case model.EventOrderFill:
		if ev.Order.Status != model.OrderStatusComplete {
			return
		}
		c.onTerminalFill(ev.CorrelationID)
	case model.EventOrderRejected:
		c.onRejection(ev.CorrelationID, ev.Reason)
	}
}

func (c *Correlator) onTerminalFill(correlationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.pending[correlationID]
	if !ok {
		return
	}
	w.remaining--
	if w.remaining > 0 {
		return
	}
	w.result <- nil
	delete(c.pending, correlationID)
}

func (c *Correlator) onRejection(correlationID, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.pending[correlationID]
	if !ok {
		return
	}
	w.result <- fmt.Errorf("order rejected: %s", reason)
	delete(c.pending, correlationID)
}

// Run subscribes the correlator to the bus until ctx is done.
func (c *Correlator) Run(ctx context.Context, bus eventbus.Bus) {
	ch, unsubscribe := bus.Subscribe(256)
	go func() {
		defer unsubscribe()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				c.OnEvent(ev)
			case <-ctx.Done():
				return
			}
		}
	}()
}

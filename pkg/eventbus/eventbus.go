// Package eventbus is the publish/subscribe boundary between the dispatch
// path and real-time observers (fill correlator, aggregator, outbound
// bridges). Delivery is best-effort: publishing never blocks the caller.
package eventbus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

type Bus interface {
	Publish(ev *model.OrderEvent)
	// Subscribe returns a receive channel and an unsubscribe func.
	Subscribe(buffer int) (<-chan *model.OrderEvent, func())
}

type InMemoryBus struct {
	mu     sync.RWMutex
	subs   map[int]chan *model.OrderEvent
	nextID int
	logger *zap.Logger
}

func NewInMemoryBus(logger *zap.Logger) *InMemoryBus {
	return &InMemoryBus{
		subs:   make(map[int]chan *model.OrderEvent),
		logger: logger,
	}
}

// Publish fans the event out to every subscriber. A subscriber whose buffer
// is full misses the event rather than stalling the publisher.
func (b *InMemoryBus) Publish(ev *model.OrderEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("event dropped, slow subscriber",
				zap.Int("subscriber", id),
				zap.String("event", string(ev.Type)),
				zap.String("order_id", ev.Order.ID))
		}
	}
}

func (b *InMemoryBus) Subscribe(buffer int) (<-chan *model.OrderEvent, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan *model.OrderEvent, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

package eventbus

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSBridge forwards bus events to a JetStream subject so the worker can
// persist them and external observers can consume them. Publish failures
// are logged and dropped; the bridge never pushes back on the core.
type NATSBridge struct {
	js      nats.JetStreamContext
	subject string
	bus     Bus
	logger  *zap.Logger
	done    chan struct{}
}

func NewNATSBridge(js nats.JetStreamContext, subject string, bus Bus, logger *zap.Logger) *NATSBridge {
	return &NATSBridge{
		js:      js,
		subject: subject,
		bus:     bus,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (b *NATSBridge) Start(ctx context.Context) {
	ch, unsubscribe := b.bus.Subscribe(1024)
	go func() {
		defer unsubscribe()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					b.logger.Warn("marshal event failed", zap.Error(err))
					continue
				}
				if _, err := b.js.PublishAsync(b.subject, data); err != nil {
					b.logger.Warn("publish event failed",
						zap.String("subject", b.subject), zap.Error(err))
				}
			case <-ctx.Done():
				return
			case <-b.done:
				return
			}
		}
	}()
}

func (b *NATSBridge) Stop() {
	close(b.done)
}

// Package worker consumes order events from JetStream and persists them,
// giving the audit trail a durable, replayable copy of every lifecycle
// transition.
package worker

import (
	"context"
	"encoding/json"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/ordercore/model"
	"github.com/openquant/ordercore/pkg/ordercore/repo"
)

type Worker struct {
	events *repo.OrderEventSQLRepo
	logger *zap.Logger
}

func NewWorker(r repo.IRepo, logger *zap.Logger) *Worker {
	return &Worker{
		events: r.OrderEvent(),
		logger: logger,
	}
}

func (w *Worker) StartConsumer(ctx context.Context, js nats.JetStreamContext, subject, durable string) error {
	cons, err := js.PullSubscribe(subject, durable)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := cons.Fetch(10, nats.Context(ctx))
		if err != nil {
			if err == context.Canceled || err == context.DeadlineExceeded {
				return err
			}
			w.logger.Warn("fetch error", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var ev model.OrderEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				w.logger.Warn("unmarshal event failed", zap.Error(err))
				_ = msg.Ack()
				continue
			}
			if err := w.handleEvent(ctx, &ev); err != nil {
				w.logger.Warn("persist event failed",
					zap.String("event_id", ev.EventID), zap.Error(err))
				continue
			}
			_ = msg.Ack()
		}
	}
}

func (w *Worker) handleEvent(ctx context.Context, ev *model.OrderEvent) error {
	_, err := w.events.Create(ctx, ev)
	return err
}

// Package ordercore is the order-management core: admission routing,
// dispatch, amendment, timeout and multi-leg execution on top of the
// broker gateway and the external stores.
package ordercore

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/audit"
	"github.com/openquant/ordercore/pkg/ordercore/idempotency"
	"github.com/openquant/ordercore/pkg/ordercore/model"
	"github.com/openquant/ordercore/pkg/ordercore/queue"
)

// Router is the admission gate in front of the queue: kill-switch check,
// then idempotency check, then enqueue. Every outcome lands in the
// decision log.
type Router struct {
	queue    *queue.PriorityQueue
	guard    *idempotency.Guard
	recorder audit.Recorder
	logger   *zap.Logger

	killSwitch atomic.Bool
}

func NewRouter(q *queue.PriorityQueue, guard *idempotency.Guard, recorder audit.Recorder, logger *zap.Logger) *Router {
	return &Router{
		queue:    q,
		guard:    guard,
		recorder: recorder,
		logger:   logger,
	}
}

// Route admits or rejects one request. Rejections are result values, never
// errors; the pipeline short-circuits on the first failing check.
func (r *Router) Route(ctx context.Context, req *model.OrderRequest, priority model.Priority) model.RouteResult {
	if r.killSwitch.Load() && priority != model.PriorityKillSwitch {
		return r.decide(ctx, req, priority, model.RouteResult{Reason: reasonKillSwitch})
	}

	if !r.guard.IsUnique(ctx, req) {
		return r.decide(ctx, req, priority, model.RouteResult{Reason: reasonDuplicate})
	}

	r.queue.Enqueue(req, priority)
	r.guard.MarkProcessed(ctx, req)
	return r.decide(ctx, req, priority, model.RouteResult{Accepted: true})
}

func (r *Router) decide(ctx context.Context, req *model.OrderRequest, priority model.Priority, res model.RouteResult) model.RouteResult {
	r.recorder.Record(ctx, &model.Decision{
		Kind:          model.DecisionRoute,
		CorrelationID: req.CorrelationID,
		StrategyID:    req.StrategyID,
		Priority:      priority.String(),
		Accepted:      res.Accepted,
		Reason:        res.Reason,
		Timestamp:     time.Now(),
	})
	if !res.Accepted {
		r.logger.Info("order rejected at admission",
			zap.String("symbol", req.Symbol),
			zap.String("correlation_id", req.CorrelationID),
			zap.String("reason", res.Reason))
	}
	return res
}

// ActivateKillSwitch blocks all non-kill-switch routing until deactivated.
func (r *Router) ActivateKillSwitch(ctx context.Context) {
	r.killSwitch.Store(true)
	r.logger.Warn("kill switch activated")
	r.recorder.Record(ctx, &model.Decision{
		Kind:      model.DecisionKillSwitch,
		Accepted:  true,
		Reason:    "kill switch activated",
		Timestamp: time.Now(),
	})
}

func (r *Router) DeactivateKillSwitch(ctx context.Context) {
	r.killSwitch.Store(false)
	r.logger.Warn("kill switch deactivated")
	r.recorder.Record(ctx, &model.Decision{
		Kind:      model.DecisionKillSwitch,
		Accepted:  true,
		Reason:    "kill switch deactivated",
		Timestamp: time.Now(),
	})
}

func (r *Router) IsKillSwitchActive() bool {
	return r.killSwitch.Load()
}

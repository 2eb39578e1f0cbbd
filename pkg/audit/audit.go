// Package audit records admission and lifecycle decisions. Recording is
// fire-and-forget: a sink failure never blocks or fails the operation that
// produced the decision.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

type Recorder interface {
	Record(ctx context.Context, d *model.Decision)
}

// ZapRecorder mirrors every decision into the structured log.
type ZapRecorder struct {
	logger *zap.Logger
}

func NewZapRecorder(logger *zap.Logger) *ZapRecorder {
	return &ZapRecorder{logger: logger}
}

func (r *ZapRecorder) Record(_ context.Context, d *model.Decision) {
	r.logger.Info("decision",
		zap.String("kind", d.Kind),
		zap.String("correlation_id", d.CorrelationID),
		zap.String("strategy_id", d.StrategyID),
		zap.String("priority", d.Priority),
		zap.Bool("accepted", d.Accepted),
		zap.String("reason", d.Reason))
}

// DecisionStore persists decisions; implemented by the SQL repo.
type DecisionStore interface {
	SaveDecision(ctx context.Context, d *model.Decision) error
}

// StoreRecorder writes decisions to durable storage, best-effort.
type StoreRecorder struct {
	store  DecisionStore
	logger *zap.Logger
}

func NewStoreRecorder(store DecisionStore, logger *zap.Logger) *StoreRecorder {
	return &StoreRecorder{store: store, logger: logger}
}

func (r *StoreRecorder) Record(ctx context.Context, d *model.Decision) {
	if err := r.store.SaveDecision(ctx, d); err != nil {
		r.logger.Warn("persist decision failed", zap.Error(err))
	}
}

// MultiRecorder fans a decision out to several sinks.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, d *model.Decision) {
	for _, r := range m {
		r.Record(ctx, d)
	}
}

package ordercore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/audit"
	"github.com/openquant/ordercore/pkg/ordercore/model"
	"github.com/openquant/ordercore/pkg/ordercore/tag"
)

const rollbackPrefix = "ROLLBACK-"

// MultiLegExecutor orchestrates an ordered list of legs as one logical
// operation on top of the router, with a write-ahead journal and
// compensating rollback. Every journal row reaches a terminal status.
type MultiLegExecutor struct {
	router   *Router
	journal  JournalStore
	tags     *tag.Generator
	recorder audit.Recorder
	logger   *zap.Logger
}

func NewMultiLegExecutor(router *Router, journal JournalStore, tags *tag.Generator,
	recorder audit.Recorder, logger *zap.Logger) *MultiLegExecutor {
	return &MultiLegExecutor{
		router:   router,
		journal:  journal,
		tags:     tags,
		recorder: recorder,
		logger:   logger,
	}
}

type legPlan struct {
	request *model.OrderRequest
	entry   *model.JournalEntry
}

// ExecuteSequential routes legs one at a time in list order. On the first
// failure the remaining legs are skipped and every already-executed leg is
// rolled back with a compensating opposite-side order.
func (e *MultiLegExecutor) ExecuteSequential(ctx context.Context, legs []*model.OrderRequest,
	strategyID string, op model.OperationType, priority model.Priority) *model.MultiLegResult {

	groupID, plans, res := e.writeAhead(ctx, legs, strategyID, op, priority)
	if res != nil {
		return res
	}

	results := make([]model.LegResult, len(plans))
	failedAt := -1
	for i, plan := range plans {
		results[i] = e.attemptLeg(ctx, plan, strategyID, priority)
		if results[i].Status == model.JournalFailed {
			failedAt = i
			break
		}
	}

	if failedAt >= 0 {
		for i := failedAt + 1; i < len(plans); i++ {
			e.updateEntry(ctx, plans[i].entry, model.JournalSkipped, "earlier leg failed")
			results[i] = model.LegResult{Index: i, Status: model.JournalSkipped, Reason: "earlier leg failed"}
		}
		e.rollback(ctx, groupID, plans, results, priority)
	}

	return e.finish(ctx, groupID, strategyID, op, priority, results, failedAt < 0)
}

// ExecuteParallel submits every leg concurrently; all legs get a result and
// none are skipped. If any leg failed, each leg that succeeded is rolled
// back. Total latency is bounded by the slowest leg.
func (e *MultiLegExecutor) ExecuteParallel(ctx context.Context, legs []*model.OrderRequest,
	strategyID string, op model.OperationType, priority model.Priority) *model.MultiLegResult {

	groupID, plans, res := e.writeAhead(ctx, legs, strategyID, op, priority)
	if res != nil {
		return res
	}

	results := make([]model.LegResult, len(plans))
	var wg sync.WaitGroup
	for i, plan := range plans {
		wg.Add(1)
		go func(i int, plan legPlan) {
			defer wg.Done()
			results[i] = e.attemptLeg(ctx, plan, strategyID, priority)
		}(i, plan)
	}
	wg.Wait()

	success := true
	for _, r := range results {
		if r.Status != model.JournalExecuted {
			success = false
			break
		}
	}
	if !success {
		e.rollback(ctx, groupID, plans, results, priority)
	}

	return e.finish(ctx, groupID, strategyID, op, priority, results, success)
}

// ExecuteBuyFirstThenSell runs sequentially with buys ahead of sells, so
// margin freed by covering shorts is available before the sell legs
// consume it. Leg indices in the result refer to the reordered list.
func (e *MultiLegExecutor) ExecuteBuyFirstThenSell(ctx context.Context, legs []*model.OrderRequest,
	strategyID string, op model.OperationType, priority model.Priority) *model.MultiLegResult {

	ordered := make([]*model.OrderRequest, 0, len(legs))
	for _, leg := range legs {
		if leg.Side == model.OrderSideBuy {
			ordered = append(ordered, leg)
		}
	}
	for _, leg := range legs {
		if leg.Side != model.OrderSideBuy {
			ordered = append(ordered, leg)
		}
	}
	return e.ExecuteSequential(ctx, ordered, strategyID, op, priority)
}

// writeAhead journals every leg as PENDING under one fresh group id before
// any routing call. A journal write failure aborts the whole operation
// without routing anything.
func (e *MultiLegExecutor) writeAhead(ctx context.Context, legs []*model.OrderRequest,
	strategyID string, op model.OperationType, priority model.Priority) (string, []legPlan, *model.MultiLegResult) {

	if len(legs) == 0 {
		e.recorder.Record(ctx, &model.Decision{
			Kind:       model.DecisionMultiLeg,
			StrategyID: strategyID,
			Priority:   priority.String(),
			Accepted:   false,
			Reason:     reasonNoLegs,
			Timestamp:  time.Now(),
		})
		return "", nil, &model.MultiLegResult{Success: false}
	}

	groupID := uuid.New().String()
	now := time.Now()
	plans := make([]legPlan, len(legs))
	for i, leg := range legs {
		req := *leg
		req.CorrelationID = groupID
		if req.StrategyID == "" {
			req.StrategyID = strategyID
		}
		plans[i] = legPlan{
			request: &req,
			entry: &model.JournalEntry{
				GroupID:   groupID,
				Operation: op,
				LegIndex:  i,
				TotalLegs: len(legs),
				Symbol:    leg.Symbol,
				Side:      leg.Side,
				Quantity:  leg.Quantity,
				Price:     leg.Price,
				Status:    model.JournalPending,
				CreatedAt: now,
				UpdatedAt: now,
			},
		}
	}

	for k, plan := range plans {
		if err := e.journal.Save(ctx, plan.entry); err != nil {
			e.logger.Error("journal write-ahead failed, aborting operation",
				zap.String("group_id", groupID), zap.Error(err))
			reason := fmt.Sprintf("journal write failed: %v", err)
			// Rows already written must not linger in PENDING; nothing in
			// this group was routed, so they all terminate as FAILED.
			for j := 0; j < k; j++ {
				e.updateEntry(ctx, plans[j].entry, model.JournalFailed, reason)
			}
			results := make([]model.LegResult, len(plans))
			for i := range results {
				results[i] = model.LegResult{
					Index:  i,
					Status: model.JournalFailed,
					Reason: reason,
				}
			}
			return "", nil, &model.MultiLegResult{GroupID: groupID, Legs: results}
		}
	}
	return groupID, plans, nil
}

func (e *MultiLegExecutor) attemptLeg(ctx context.Context, plan legPlan,
	strategyID string, priority model.Priority) model.LegResult {

	i := plan.entry.LegIndex
	e.updateEntry(ctx, plan.entry, model.JournalInProgress, "")

	res := e.router.Route(ctx, plan.request, priority)
	if !res.Accepted {
		e.updateEntry(ctx, plan.entry, model.JournalFailed, res.Reason)
		return model.LegResult{Index: i, Status: model.JournalFailed, Reason: res.Reason}
	}

	e.updateEntry(ctx, plan.entry, model.JournalExecuted, "")
	legTag := e.tags.Generate(strategyID, priority)
	return model.LegResult{Index: i, Status: model.JournalExecuted, Tag: legTag}
}

// rollback routes a compensating opposite-side order for every executed
// leg. Rollback orders go through the same router, so they stay
// kill-switch and idempotency gated, but are never themselves rolled back.
func (e *MultiLegExecutor) rollback(ctx context.Context, groupID string,
	plans []legPlan, results []model.LegResult, priority model.Priority) {

	for i, r := range results {
		if r.Status != model.JournalExecuted {
			continue
		}
		rb := *plans[i].request
		rb.Side = rb.Side.Opposite()
		rb.CorrelationID = rollbackPrefix + groupID

		res := e.router.Route(ctx, &rb, priority)
		if !res.Accepted {
			e.logger.Error("rollback order rejected, manual intervention required",
				zap.String("group_id", groupID),
				zap.Int("leg", i),
				zap.String("symbol", rb.Symbol),
				zap.String("reason", res.Reason))
			continue
		}
		e.logger.Warn("rollback order routed",
			zap.String("group_id", groupID),
			zap.Int("leg", i),
			zap.String("symbol", rb.Symbol),
			zap.String("side", string(rb.Side)))
	}
}

func (e *MultiLegExecutor) finish(ctx context.Context, groupID, strategyID string,
	op model.OperationType, priority model.Priority,
	results []model.LegResult, success bool) *model.MultiLegResult {

	executed := 0
	for _, r := range results {
		if r.Status == model.JournalExecuted {
			executed++
		}
	}

	e.recorder.Record(ctx, &model.Decision{
		Kind:          model.DecisionMultiLeg,
		CorrelationID: groupID,
		StrategyID:    strategyID,
		Priority:      priority.String(),
		Accepted:      success,
		Reason:        fmt.Sprintf("%s: %d/%d legs executed", op, executed, len(results)),
		Timestamp:     time.Now(),
	})

	return &model.MultiLegResult{
		Success: success,
		GroupID: groupID,
		Legs:    results,
	}
}

func (e *MultiLegExecutor) updateEntry(ctx context.Context, entry *model.JournalEntry,
	status model.JournalStatus, reason string) {

	entry.Status = status
	entry.Reason = reason
	entry.UpdatedAt = time.Now()
	if err := e.journal.Update(ctx, entry); err != nil {
		e.logger.Error("journal update failed",
			zap.String("group_id", entry.GroupID),
			zap.Int("leg", entry.LegIndex),
			zap.Error(err))
	}
}

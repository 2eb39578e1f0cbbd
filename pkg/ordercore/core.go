package ordercore

import (
	"context"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// Core bundles the order-management surface exposed to callers (strategy
// engine, operator transport). Construction wires nothing new; it only
// groups the already-built components behind one handle.
type Core struct {
	router     *Router
	dispatcher *Dispatcher
	executor   *MultiLegExecutor
	amendments *AmendmentService
	monitor    *TimeoutMonitor
}

func NewCore(router *Router, dispatcher *Dispatcher, executor *MultiLegExecutor,
	amendments *AmendmentService, monitor *TimeoutMonitor) *Core {
	return &Core{
		router:     router,
		dispatcher: dispatcher,
		executor:   executor,
		amendments: amendments,
		monitor:    monitor,
	}
}

func (c *Core) Route(ctx context.Context, req *model.OrderRequest, priority model.Priority) model.RouteResult {
	return c.router.Route(ctx, req, priority)
}

func (c *Core) ExecuteSequential(ctx context.Context, legs []*model.OrderRequest,
	strategyID string, op model.OperationType, priority model.Priority) *model.MultiLegResult {
	return c.executor.ExecuteSequential(ctx, legs, strategyID, op, priority)
}

func (c *Core) ExecuteParallel(ctx context.Context, legs []*model.OrderRequest,
	strategyID string, op model.OperationType, priority model.Priority) *model.MultiLegResult {
	return c.executor.ExecuteParallel(ctx, legs, strategyID, op, priority)
}

func (c *Core) ExecuteBuyFirstThenSell(ctx context.Context, legs []*model.OrderRequest,
	strategyID string, op model.OperationType, priority model.Priority) *model.MultiLegResult {
	return c.executor.ExecuteBuyFirstThenSell(ctx, legs, strategyID, op, priority)
}

func (c *Core) ModifyOrder(ctx context.Context, orderID string, mod *model.Modification) model.AmendResult {
	return c.amendments.ModifyOrder(ctx, orderID, mod)
}

func (c *Core) CheckTimeouts(ctx context.Context) {
	c.monitor.CheckTimeouts(ctx)
}

func (c *Core) ActivateKillSwitch(ctx context.Context) {
	c.router.ActivateKillSwitch(ctx)
}

func (c *Core) DeactivateKillSwitch(ctx context.Context) {
	c.router.DeactivateKillSwitch(ctx)
}

func (c *Core) IsKillSwitchActive() bool {
	return c.router.IsKillSwitchActive()
}

// Start launches the dispatcher loop.
func (c *Core) Start() {
	c.dispatcher.Start()
}

// Stop stops the dispatcher, draining every admitted order first.
func (c *Core) Stop() {
	c.dispatcher.Stop()
}

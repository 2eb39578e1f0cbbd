// Package fixgateway implements the broker gateway over a FIX 4.4
// initiator session.
package fixgateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/fix44/ordercancelreplacerequest"
	"github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

var (
	errSessionNotReady = errors.New("fix session not logged on")
	errRequestTimeout  = errors.New("no broker response within request timeout")
	errUnknownOrder    = errors.New("unknown broker order id")
)

const defaultRequestTimeout = 5 * time.Second

type Config struct {
	ConfigFilepath string        `yaml:"config_filepath"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Gateway bridges the synchronous broker.Gateway contract onto the async
// FIX session: each request registers a pending wait keyed by ClOrdID and
// blocks until the matching ExecutionReport arrives.
type Gateway struct {
	cfg       *Config
	app       *Application
	initiator *quickfix.Initiator
	logger    *zap.Logger

	mu        sync.RWMutex
	sessionID quickfix.SessionID
	loggedOn  bool
	reportFn  func(ExecReport)

	pending      sync.Map // ClOrdID -> chan ExecReport
	lastByBroker sync.Map // broker order id -> ExecReport
	history      sync.Map // broker order id -> []model.Order
}

func NewGateway(cfg *Config, logger *zap.Logger) *Gateway {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Gateway{
		cfg:    cfg,
		logger: logger,
	}
}

func (g *Gateway) Start(ctx context.Context) error {
	g.app = newApplication(g, g.logger)
	initiator, err := startInitiator(g.cfg.ConfigFilepath, g.app)
	if err != nil {
		return err
	}
	g.initiator = initiator
	return nil
}

func (g *Gateway) Stop() {
	if g.initiator != nil {
		g.initiator.Stop()
	}
}

// OnReport registers the sink for unsolicited reports (fills, broker-side
// cancels). Must be set before Start.
func (g *Gateway) OnReport(fn func(ExecReport)) {
	g.mu.Lock()
	g.reportFn = fn
	g.mu.Unlock()
}

func (g *Gateway) setSession(sessionID quickfix.SessionID) {
	g.mu.Lock()
	g.sessionID = sessionID
	g.mu.Unlock()
}

func (g *Gateway) setLoggedOn(on bool) {
	g.mu.Lock()
	g.loggedOn = on
	g.mu.Unlock()
}

func (g *Gateway) session() (quickfix.SessionID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sessionID, g.loggedOn
}

// PlaceOrder submits a NewOrderSingle with ClOrdID set to our internal
// order id and waits for the broker's first report on it.
func (g *Gateway) PlaceOrder(ctx context.Context, order *model.Order) (string, error) {
	sessionID, ok := g.session()
	if !ok {
		return "", errSessionNotReady
	}

	msg := newordersingle.New(
		field.NewClOrdID(order.ID),
		field.NewSide(sideMapping[order.Side]),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(ordTypeMapping[order.Type]))
	msg.SetSymbol(order.Symbol)
	msg.SetOrderQty(order.Quantity, 0)
	if order.Type == model.OrderTypeLimit || order.Type == model.OrderTypeStop {
		msg.SetPrice(order.Price, 2)
	}
	if order.Type == model.OrderTypeStop || order.Type == model.OrderTypeStopMarket {
		msg.SetStopPx(order.TriggerPrice, 2)
	}
	if order.Exchange != "" {
		msg.SetExDestination(enum.ExDestination(order.Exchange))
	}

	report, err := g.roundTrip(ctx, order.ID, msg.ToMessage(), sessionID)
	if err != nil {
		return "", err
	}
	if report.Rejected() {
		return "", fmt.Errorf("order rejected: %s", textOr(report.Text))
	}
	return report.BrokerOrderID, nil
}

// ModifyOrder sends an OrderCancelReplaceRequest for the live order behind
// brokerOrderID.
func (g *Gateway) ModifyOrder(ctx context.Context, brokerOrderID string, mod *model.Modification) error {
	sessionID, ok := g.session()
	if !ok {
		return errSessionNotReady
	}
	last, ok := g.lastReport(brokerOrderID)
	if !ok {
		return errUnknownOrder
	}

	clOrdID := uuid.New().String()
	msg := ordercancelreplacerequest.New(
		field.NewOrigClOrdID(last.ClOrdID),
		field.NewClOrdID(clOrdID),
		field.NewSide(last.Side),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_LIMIT))
	msg.SetSymbol(last.Symbol)
	msg.SetOrderID(brokerOrderID)
	if mod.Quantity != nil {
		msg.SetOrderQty(*mod.Quantity, 0)
	} else {
		msg.SetOrderQty(last.OrderQty, 0)
	}
	if mod.Price != nil {
		msg.SetPrice(*mod.Price, 2)
	}
	if mod.TriggerPrice != nil {
		msg.SetStopPx(*mod.TriggerPrice, 2)
	}

	report, err := g.roundTrip(ctx, clOrdID, msg.ToMessage(), sessionID)
	if err != nil {
		return err
	}
	if report.Rejected() {
		return fmt.Errorf("modification rejected: %s", textOr(report.Text))
	}
	return nil
}

// CancelOrder sends an OrderCancelRequest for the live order behind
// brokerOrderID.
func (g *Gateway) CancelOrder(ctx context.Context, brokerOrderID string) error {
	sessionID, ok := g.session()
	if !ok {
		return errSessionNotReady
	}
	last, ok := g.lastReport(brokerOrderID)
	if !ok {
		return errUnknownOrder
	}

	clOrdID := uuid.New().String()
	msg := ordercancelrequest.New(
		field.NewOrigClOrdID(last.ClOrdID),
		field.NewClOrdID(clOrdID),
		field.NewSide(last.Side),
		field.NewTransactTime(time.Now()))
	msg.SetSymbol(last.Symbol)
	msg.SetOrderID(brokerOrderID)

	report, err := g.roundTrip(ctx, clOrdID, msg.ToMessage(), sessionID)
	if err != nil {
		return err
	}
	if report.Rejected() {
		return fmt.Errorf("cancel rejected: %s", textOr(report.Text))
	}
	return nil
}

// GetOrders returns the broker's latest view of every order seen on the
// session.
func (g *Gateway) GetOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	g.lastByBroker.Range(func(_, v interface{}) bool {
		report := v.(ExecReport)
		orders = append(orders, report.ToOrder())
		return true
	})
	return orders, nil
}

// GetOrderHistory returns the report-by-report state transitions of one
// order.
func (g *Gateway) GetOrderHistory(ctx context.Context, brokerOrderID string) ([]model.Order, error) {
	v, ok := g.history.Load(brokerOrderID)
	if !ok {
		return nil, errUnknownOrder
	}
	stored := v.([]model.Order)
	out := make([]model.Order, len(stored))
	copy(out, stored)
	return out, nil
}

func (g *Gateway) roundTrip(ctx context.Context, clOrdID string, msg *quickfix.Message, sessionID quickfix.SessionID) (ExecReport, error) {
	ch := make(chan ExecReport, 1)
	g.pending.Store(clOrdID, ch)
	defer g.pending.Delete(clOrdID)

	if err := quickfix.SendToTarget(msg, sessionID); err != nil {
		return ExecReport{}, err
	}

	timer := time.NewTimer(g.cfg.RequestTimeout)
	defer timer.Stop()
	select {
	case report := <-ch:
		return report, nil
	case <-timer.C:
		return ExecReport{}, errRequestTimeout
	case <-ctx.Done():
		return ExecReport{}, ctx.Err()
	}
}

func (g *Gateway) lastReport(brokerOrderID string) (ExecReport, bool) {
	v, ok := g.lastByBroker.Load(brokerOrderID)
	if !ok {
		return ExecReport{}, false
	}
	return v.(ExecReport), true
}

// onReport is called from the FIX session thread for every execution
// report. The first report answering a pending request resolves its wait;
// trade reports additionally flow to the registered sink.
func (g *Gateway) onReport(report ExecReport) {
	if report.BrokerOrderID != "" {
		g.lastByBroker.Store(report.BrokerOrderID, report)
		var hist []model.Order
		if v, ok := g.history.Load(report.BrokerOrderID); ok {
			hist = v.([]model.Order)
		}
		g.history.Store(report.BrokerOrderID, append(hist, report.ToOrder()))
	}

	if ch, ok := g.pending.LoadAndDelete(report.ClOrdID); ok {
		ch.(chan ExecReport) <- report
	}

	if report.ExecType == enum.ExecType_TRADE || report.ExecType == enum.ExecType_FILL ||
		report.ExecType == enum.ExecType_PARTIAL_FILL {
		g.mu.RLock()
		fn := g.reportFn
		g.mu.RUnlock()
		if fn != nil {
			fn(report)
		}
	}
}

// onCancelReject resolves a pending cancel/replace wait with a rejection.
func (g *Gateway) onCancelReject(clOrdID, text string) {
	if ch, ok := g.pending.LoadAndDelete(clOrdID); ok {
		ch.(chan ExecReport) <- ExecReport{
			ClOrdID:   clOrdID,
			OrdStatus: enum.OrdStatus_REJECTED,
			Text:      text,
		}
	}
	g.logger.Warn("cancel request rejected",
		zap.String("cl_ord_id", clOrdID), zap.String("text", text))
}

func textOr(text string) string {
	if text == "" {
		return "no reason given"
	}
	return text
}

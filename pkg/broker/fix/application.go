package fixgateway

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/fix44/ordercancelreject"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"github.com/quickfixgo/tag"
	"go.uber.org/zap"
)

// Application implements the quickfix.Application interface for the
// initiator session against the broker.
type Application struct {
	*quickfix.MessageRouter
	gateway *Gateway
	logger  *zap.Logger
}

func newApplication(gateway *Gateway, logger *zap.Logger) *Application {
	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		gateway:       gateway,
		logger:        logger,
	}
	app.AddRoute(executionreport.Route(app.onExecutionReport))
	app.AddRoute(ordercancelreject.Route(app.onOrderCancelReject))
	return app
}

func (a *Application) OnCreate(sessionID quickfix.SessionID) {
	a.gateway.setSession(sessionID)
}

func (a *Application) OnLogon(sessionID quickfix.SessionID) {
	a.logger.Info("fix session logon", zap.String("session", sessionID.String()))
	a.gateway.setLoggedOn(true)
}

func (a *Application) OnLogout(sessionID quickfix.SessionID) {
	a.logger.Warn("fix session logout", zap.String("session", sessionID.String()))
	a.gateway.setLoggedOn(false)
}

func (a *Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

func (a *Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

func (a *Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	if msg.Body.Has(tag.Text) {
		text, _ := msg.Body.GetString(tag.Text)
		a.logger.Warn("admin message with text", zap.String("text", text))
	}
	return nil
}

func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return a.Route(msg, sessionID)
}

func (a *Application) onExecutionReport(msg executionreport.ExecutionReport, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	report := ExecReport{}
	report.ClOrdID, _ = msg.GetClOrdID()
	report.OrigClOrdID, _ = msg.GetOrigClOrdID()
	report.BrokerOrderID, _ = msg.GetOrderID()
	report.ExecType, _ = msg.GetExecType()
	report.OrdStatus, _ = msg.GetOrdStatus()
	report.Symbol, _ = msg.GetSymbol()
	report.Side, _ = msg.GetSide()
	report.OrderQty, _ = msg.GetOrderQty()
	report.CumQty, _ = msg.GetCumQty()
	report.AvgPx, _ = msg.GetAvgPx()
	report.LastQty, _ = msg.GetLastQty()
	report.LastPx, _ = msg.GetLastPx()
	report.Text, _ = msg.GetText()
	report.TransactTime, _ = msg.GetTransactTime()

	a.gateway.onReport(report)
	return nil
}

func (a *Application) onOrderCancelReject(msg ordercancelreject.OrderCancelReject, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, _ := msg.GetClOrdID()
	text, _ := msg.GetText()
	a.gateway.onCancelReject(clOrdID, text)
	return nil
}

// startInitiator parses the session settings and starts the FIX initiator.
func startInitiator(configFilepath string, app *Application) (*quickfix.Initiator, error) {
	cfg, err := os.Open(configFilepath)
	if err != nil {
		return nil, fmt.Errorf("error opening %v, %v", configFilepath, err)
	}
	defer cfg.Close() // nolint

	stringData, readErr := io.ReadAll(cfg)
	if readErr != nil {
		return nil, fmt.Errorf("error reading cfg: %s,", readErr)
	}

	appSettings, err := quickfix.ParseSettings(bytes.NewReader(stringData))
	if err != nil {
		return nil, fmt.Errorf("error reading cfg: %s,", err)
	}

	logFactory, _ := file.NewLogFactory(appSettings)
	initiator, err := quickfix.NewInitiator(app, quickfix.NewMemoryStoreFactory(), appSettings, logFactory)
	if err != nil {
		return nil, fmt.Errorf("unable to create initiator: %s", err)
	}

	if err := initiator.Start(); err != nil {
		return nil, fmt.Errorf("unable to start FIX initiator: %s", err)
	}
	return initiator, nil
}

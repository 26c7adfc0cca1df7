package main

import (
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/executionreport"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/fix44/ordercancelreject"
	"github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type orderArgs struct {
	symbol string
	side   enum.Side
	ordTyp enum.OrdType
	price  decimal.Decimal
	qty    decimal.Decimal
	cancel bool
}

// InitiatorApp places one order against the gateway's FIX acceptor and logs
// the execution reports it gets back.
type InitiatorApp struct {
	*quickfix.MessageRouter
	args    orderArgs
	logger  *zap.SugaredLogger
	clOrdID string
	done    chan struct{}
	once    sync.Once
}

func newInitiatorApp(args orderArgs, logger *zap.SugaredLogger) *InitiatorApp {
	app := &InitiatorApp{
		MessageRouter: quickfix.NewMessageRouter(),
		args:          args,
		logger:        logger,
		done:          make(chan struct{}),
	}
	app.AddRoute(executionreport.Route(app.onExecutionReport))
	app.AddRoute(ordercancelreject.Route(app.onOrderCancelReject))
	return app
}

func (a *InitiatorApp) OnCreate(sessionID quickfix.SessionID) {}

func (a *InitiatorApp) OnLogon(sessionID quickfix.SessionID) {
	a.logger.Infow("logon success", "session", sessionID.String())
	a.clOrdID = uuid.NewString()
	a.send(a.newOrder(), sessionID)
}

func (a *InitiatorApp) OnLogout(sessionID quickfix.SessionID)                       {}
func (a *InitiatorApp) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}
func (a *InitiatorApp) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}
func (a *InitiatorApp) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}
func (a *InitiatorApp) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return a.Route(msg, sessionID)
}

func (a *InitiatorApp) newOrder() fix44nos.NewOrderSingle {
	order := fix44nos.New(
		field.NewClOrdID(a.clOrdID),
		field.NewSide(a.args.side),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(a.args.ordTyp))
	order.SetSymbol(a.args.symbol)
	order.SetOrderQty(a.args.qty, 8)
	if a.args.ordTyp == enum.OrdType_LIMIT {
		order.SetPrice(a.args.price, 8)
	}
	return order
}

func (a *InitiatorApp) send(m quickfix.Messagable, sessionID quickfix.SessionID) {
	if err := quickfix.SendToTarget(m, sessionID); err != nil {
		a.logger.Errorw("send failed", "error", err)
	}
}

func (a *InitiatorApp) onExecutionReport(msg executionreport.ExecutionReport, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	orderID, _ := msg.GetOrderID()
	status, _ := msg.GetOrdStatus()
	cum, _ := msg.GetCumQty()
	leaves, _ := msg.GetLeavesQty()
	text, _ := msg.GetText()
	a.logger.Infow("execution report", "order_id", orderID, "status", status, "cum_qty", cum, "leaves_qty", leaves, "text", text)

	switch status {
	case enum.OrdStatus_NEW:
		if a.args.cancel {
			cancel := ordercancelrequest.New(
				field.NewOrigClOrdID(a.clOrdID),
				field.NewClOrdID(uuid.NewString()),
				field.NewSide(a.args.side),
				field.NewTransactTime(time.Now()))
			cancel.SetSymbol(a.args.symbol)
			a.send(cancel, sessionID)
		}
	case enum.OrdStatus_FILLED, enum.OrdStatus_CANCELED, enum.OrdStatus_REJECTED:
		a.once.Do(func() { close(a.done) })
	}
	return nil
}

func (a *InitiatorApp) onOrderCancelReject(msg ordercancelreject.OrderCancelReject, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	text, _ := msg.GetText()
	a.logger.Warnw("cancel rejected", "text", text)
	a.once.Do(func() { close(a.done) })
	return nil
}

func main() {
	var (
		cfgPath string
		side    string
		ordType string
		price   string
		qty     string
		args    orderArgs
	)
	flag.StringVar(&cfgPath, "config-file", "./config/fixclient.cfg", "quickfix initiator settings")
	flag.StringVar(&args.symbol, "symbol", "BTC-PERP", "market name")
	flag.StringVar(&side, "side", "buy", "buy or sell")
	flag.StringVar(&ordType, "type", "limit", "limit or market")
	flag.StringVar(&price, "price", "0", "limit price")
	flag.StringVar(&qty, "qty", "0.001", "order quantity")
	flag.BoolVar(&args.cancel, "cancel", false, "cancel the order once it is accepted")
	flag.Parse()

	logger := zap.Must(zap.NewDevelopment()).Sugar()
	defer logger.Sync()

	args.side = enum.Side_BUY
	if side == "sell" {
		args.side = enum.Side_SELL
	}
	args.ordTyp = enum.OrdType_LIMIT
	if ordType == "market" {
		args.ordTyp = enum.OrdType_MARKET
	}
	var err error
	if args.price, err = decimal.NewFromString(price); err != nil {
		logger.Fatalw("bad price", "error", err)
	}
	if args.qty, err = decimal.NewFromString(qty); err != nil {
		logger.Fatalw("bad quantity", "error", err)
	}

	cfg, err := os.Open(cfgPath)
	if err != nil {
		logger.Fatal(err)
	}
	defer cfg.Close() // nolint

	settings, err := quickfix.ParseSettings(cfg)
	if err != nil {
		logger.Fatal(err)
	}

	app := newInitiatorApp(args, logger)
	logFactory, err := file.NewLogFactory(settings)
	if err != nil {
		logger.Fatal(err)
	}
	initiator, err := quickfix.NewInitiator(app, quickfix.NewMemoryStoreFactory(), settings, logFactory)
	if err != nil {
		logger.Fatal(err)
	}
	if err = initiator.Start(); err != nil {
		logger.Fatal(err)
	}
	defer initiator.Stop()
	logger.Info("initiator started")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-app.done:
	case <-sigs:
	}
}

package fixgateway

import (
	"bytes"
	"fmt"
	"os"

	"github.com/joripage/go_util/pkg/shardqueue"
	"github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"github.com/quickfixgo/tag"
	"go.uber.org/zap"
)

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	cfg        AppConfig
	shardQueue *shardqueue.Shardqueue
	gateway    *FixGateway
	logger     *zap.Logger
}

type AppConfig struct {
	enableShardQueue bool
}

type inboundMsg struct {
	msg       *quickfix.Message
	sessionID quickfix.SessionID
}

const (
	numShards = 16
	queueSize = 100_000
)

func newApplication(cfg AppConfig, gateway *FixGateway, logger *zap.Logger) *Application {
	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		cfg:           cfg,
		gateway:       gateway,
		logger:        logger,
	}

	app.AddRoute(newordersingle.Route(app.onNewOrderSingle))
	app.AddRoute(ordercancelrequest.Route(app.onOrderCancelRequest))

	if app.cfg.enableShardQueue {
		app.shardQueue = shardqueue.NewShardQueue(numShards, queueSize)
		app.shardQueue.Start(func(msg interface{}) error {
			if v, ok := msg.(*inboundMsg); ok {
				if err := app.Route(v.msg, v.sessionID); err != nil {
					app.logger.Warn("route failed", zap.Error(err))
				}
			}
			return nil
		})
	}

	return app
}

func startAcceptor(configFilepath string, app *Application) (*quickfix.Acceptor, error) {
	data, err := os.ReadFile(configFilepath)
	if err != nil {
		return nil, fmt.Errorf("error reading %v: %w", configFilepath, err)
	}

	appSettings, err := quickfix.ParseSettings(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing fix settings: %w", err)
	}

	logFactory, err := file.NewLogFactory(appSettings)
	if err != nil {
		return nil, fmt.Errorf("unable to create fix log factory: %w", err)
	}
	acceptor, err := quickfix.NewAcceptor(app, quickfix.NewMemoryStoreFactory(), appSettings, logFactory)
	if err != nil {
		return nil, fmt.Errorf("unable to create acceptor: %w", err)
	}

	if err = acceptor.Start(); err != nil {
		return nil, fmt.Errorf("unable to start FIX acceptor: %w", err)
	}
	return acceptor, nil
}

// OnCreate implemented as part of Application interface
func (a *Application) OnCreate(sessionID quickfix.SessionID) {}

// OnLogon implemented as part of Application interface
func (a *Application) OnLogon(sessionID quickfix.SessionID) {
	a.logger.Info("fix session logon", zap.String("session", sessionID.String()))
}

// OnLogout implemented as part of Application interface
func (a *Application) OnLogout(sessionID quickfix.SessionID) {
	a.logger.Info("fix session logout", zap.String("session", sessionID.String()))
}

// ToAdmin implemented as part of Application interface
func (a *Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

// ToApp implemented as part of Application interface
func (a *Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

// FromAdmin implemented as part of Application interface
func (a *Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp routes application messages, through the shard queue when it is on
// so that requests for the same order keep their order.
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	if a.cfg.enableShardQueue {
		a.shardQueue.Shard(getRoutingKey(msg, sessionID), &inboundMsg{msg, sessionID})
		return nil
	}
	return a.Route(msg, sessionID)
}

// getRoutingKey shards cancels by OrigClOrdID so they follow the order they target.
func getRoutingKey(msg *quickfix.Message, sessionID quickfix.SessionID) string {
	if orig, err := msg.Body.GetString(tag.OrigClOrdID); err == nil && orig != "" {
		return orig
	}
	if clOrdID, err := msg.Body.GetString(tag.ClOrdID); err == nil && clOrdID != "" {
		return clOrdID
	}
	if msgType, err := msg.Header.GetString(tag.MsgType); err == nil {
		return "MSGTYPE:" + msgType
	}
	return sessionID.String()
}

func (a *Application) onNewOrderSingle(msg newordersingle.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, err := msg.GetClOrdID()
	if err != nil {
		return err
	}
	side, err := msg.GetSide()
	if err != nil {
		return err
	}
	ordType, err := msg.GetOrdType()
	if err != nil {
		return err
	}
	symbol, _ := msg.GetSymbol()
	price, _ := msg.GetPrice()
	orderQty, _ := msg.GetOrderQty()
	account, _ := msg.GetAccount()

	a.gateway.AddOrder(&NewOrderSingle{
		SessionID: sessionID,
		Account:   account,
		ClOrdID:   clOrdID,
		Symbol:    symbol,
		OrdType:   ordType,
		Side:      side,
		Price:     price,
		OrderQty:  orderQty,
	})
	return nil
}

func (a *Application) onOrderCancelRequest(msg ordercancelrequest.OrderCancelRequest, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, err := msg.GetClOrdID()
	if err != nil {
		return err
	}
	origClOrdID, err := msg.GetOrigClOrdID()
	if err != nil {
		return err
	}
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()

	a.gateway.CancelOrder(&OrderCancelRequest{
		SessionID:   sessionID,
		ClOrdID:     clOrdID,
		OrigClOrdID: origClOrdID,
		Symbol:      symbol,
		Side:        side,
	})
	return nil
}

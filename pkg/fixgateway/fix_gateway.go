package fixgateway

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"

	"github.com/joripage/ftx-gateway/pkg/model"
)

var errNotStarted = errors.New("fix gateway not started")

// OrderRouter is the part of the exchange gateway that FIX clients drive.
type OrderRouter interface {
	SendOrder(req *model.OrderRequest) (string, error)
	CancelOrder(req *model.CancelRequest)
}

type FixGatewayConfig struct {
	ConfigFilepath   string
	EnableShardQueue bool
}

// FixGateway accepts FIX 4.4 order entry and answers with execution reports
// built from the gateway's order updates. The FIX ClOrdID travels as the
// order reference.
type FixGateway struct {
	cfg      *FixGatewayConfig
	app      *Application
	acceptor *quickfix.Acceptor
	router   OrderRouter
	logger   *zap.Logger
	send     func(m quickfix.Messagable, sessionID quickfix.SessionID) error

	sessionMapping sync.Map // ClOrdID -> quickfix.SessionID
	orderMapping   sync.Map // ClOrdID -> OrderID
	execSeq        atomic.Int64
}

func NewFixGateway(cfg *FixGatewayConfig, logger *zap.Logger) *FixGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FixGateway{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "fix")),
		send:   quickfix.SendToTarget,
	}
	s.app = newApplication(AppConfig{enableShardQueue: cfg.EnableShardQueue}, s, s.logger)
	return s
}

func (s *FixGateway) AddGatewayInstance(router OrderRouter) {
	s.router = router
}

func (s *FixGateway) Start() error {
	if s.router == nil {
		return errNotStarted
	}
	acceptor, err := startAcceptor(s.cfg.ConfigFilepath, s.app)
	if err != nil {
		s.logger.Error("start fix acceptor failed", zap.Error(err))
		return err
	}
	s.acceptor = acceptor
	s.logger.Info("fix acceptor started", zap.String("config", s.cfg.ConfigFilepath))
	return nil
}

func (s *FixGateway) Stop() {
	if s.acceptor != nil {
		s.acceptor.Stop()
	}
}

func (s *FixGateway) nextExecID(prefix string) string {
	return prefix + "-" + strconv.FormatInt(s.execSeq.Add(1), 10)
}

func (s *FixGateway) reply(m quickfix.Messagable, sessionID quickfix.SessionID) {
	if err := s.send(m, sessionID); err != nil {
		s.logger.Warn("send fix message failed", zap.String("session", sessionID.String()), zap.Error(err))
	}
}

func (s *FixGateway) AddOrder(req *NewOrderSingle) {
	reject := func(text string) {
		s.logger.Info("reject new order single", zap.String("cl_ord_id", req.ClOrdID), zap.String("reason", text))
		s.reply(rejectReport(req, s.nextExecID(req.ClOrdID), text), req.SessionID)
	}

	direction, ok := SideMapping[req.Side]
	if !ok {
		reject("unsupported side")
		return
	}
	orderType, ok := OrdTypeMapping[req.OrdType]
	if !ok {
		reject("unsupported order type")
		return
	}
	if !req.OrderQty.IsPositive() {
		reject("order quantity must be positive")
		return
	}
	if _, loaded := s.sessionMapping.LoadOrStore(req.ClOrdID, req.SessionID); loaded {
		reject("duplicate ClOrdID")
		return
	}

	orderID, err := s.router.SendOrder(&model.OrderRequest{
		Symbol:    req.Symbol,
		Exchange:  model.ExchangeFTX,
		Direction: direction,
		Type:      orderType,
		Price:     req.Price,
		Volume:    req.OrderQty,
		Reference: req.ClOrdID,
	})
	if err != nil {
		s.sessionMapping.Delete(req.ClOrdID)
		reject(err.Error())
		return
	}
	s.orderMapping.Store(req.ClOrdID, orderID)
}

func (s *FixGateway) CancelOrder(req *OrderCancelRequest) {
	v, ok := s.orderMapping.Load(req.OrigClOrdID)
	if !ok {
		s.logger.Info("cancel for unknown order", zap.String("orig_cl_ord_id", req.OrigClOrdID))
		s.reply(cancelReject(req, "unknown order"), req.SessionID)
		return
	}
	s.router.CancelOrder(&model.CancelRequest{
		OrderID:  v.(string),
		Symbol:   req.Symbol,
		Exchange: model.ExchangeFTX,
	})
}

func (s *FixGateway) OnOrder(order *model.Order) {
	if order.Reference == "" {
		return
	}
	v, ok := s.sessionMapping.Load(order.Reference)
	if !ok {
		return
	}
	msg, ok := orderToExecutionReport(order, order.Reference, s.nextExecID(order.OrderID))
	if !ok {
		s.logger.Debug("no execution report for status", zap.String("order_id", order.OrderID), zap.String("status", string(order.Status)))
		return
	}
	s.reply(msg, v.(quickfix.SessionID))

	if !order.IsActive() {
		s.sessionMapping.Delete(order.Reference)
		s.orderMapping.Delete(order.Reference)
	}
}

func (s *FixGateway) OnTick(*model.Tick)         {}
func (s *FixGateway) OnTrade(*model.Trade)       {}
func (s *FixGateway) OnAccount(*model.Account)   {}
func (s *FixGateway) OnPosition(*model.Position) {}
func (s *FixGateway) OnContract(*model.Contract) {}
func (s *FixGateway) OnLog(string)               {}

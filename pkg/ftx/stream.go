package ftx

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/joripage/ftx-gateway/pkg/logging"
	"github.com/joripage/ftx-gateway/pkg/metrics"
	"github.com/joripage/ftx-gateway/pkg/model"
)

const (
	DefaultWebsocketHost      = "wss://ftx.com/ws/"
	DefaultHeartbeatThreshold = 15
)

type StreamState int32

const (
	StateDisconnected StreamState = iota
	StateConnecting
	StateConnected
	StateAuthenticated
)

func (s StreamState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	}
	return "UNKNOWN"
}

// FrameSender writes one JSON frame to the live connection.
type FrameSender interface {
	SendJSON(v any) error
}

// StreamConnector is the websocket session handler: it authenticates,
// replays subscriptions on every (re)connect and dispatches inbound frames.
type StreamConnector struct {
	signer    *Signer
	state     *State
	publisher Publisher
	logger    *logging.Logger

	sender   FrameSender
	senderMu sync.RWMutex

	connState atomic.Int32

	mu            sync.Mutex
	subscriptions *subscriptionRegistry

	heartbeatMu        sync.Mutex
	heartbeatCount     int
	heartbeatThreshold int

	positionRefresher func()
}

func NewStreamConnector(signer *Signer, state *State, publisher Publisher, logger *logging.Logger, heartbeatThreshold int) *StreamConnector {
	if heartbeatThreshold <= 0 {
		heartbeatThreshold = DefaultHeartbeatThreshold
	}
	return &StreamConnector{
		signer:             signer,
		state:              state,
		publisher:          publisher,
		logger:             logger.With(zap.String("component", "ftx.stream")),
		subscriptions:      newSubscriptionRegistry(),
		heartbeatThreshold: heartbeatThreshold,
	}
}

// Attach sets the transport frames are written to.
func (c *StreamConnector) Attach(sender FrameSender) {
	c.senderMu.Lock()
	c.sender = sender
	c.senderMu.Unlock()
}

// SetPositionRefresher sets the callback run after every resolved fill.
func (c *StreamConnector) SetPositionRefresher(fn func()) {
	c.positionRefresher = fn
}

func (c *StreamConnector) State() StreamState {
	return StreamState(c.connState.Load())
}

func (c *StreamConnector) setState(s StreamState) {
	c.connState.Store(int32(s))
}

func (c *StreamConnector) send(frame any) error {
	c.senderMu.RLock()
	sender := c.sender
	c.senderMu.RUnlock()
	if sender == nil {
		return ErrNotConnected
	}
	if err := sender.SendJSON(frame); err != nil {
		c.logger.Debug(context.Background(), "send frame failed", zap.Any("frame", frame), zap.Error(err))
		return err
	}
	return nil
}

func (c *StreamConnector) writeLog(msg string) {
	c.logger.Info(context.Background(), msg)
	c.publisher.OnLog(msg)
}

// Subscribe adds a ticker subscription. Requests for symbols missing from the
// contract registry are rejected with ErrUnknownSymbol. The subscription is
// kept even when the frame cannot be sent and is replayed on connect.
func (c *StreamConnector) Subscribe(req model.SubscribeRequest) error {
	if !c.state.Symbols.Has(req.Symbol) {
		c.writeLog("symbol not found: " + req.Symbol)
		return ErrUnknownSymbol
	}

	c.mu.Lock()
	added := c.subscriptions.add(req)
	c.mu.Unlock()
	if !added {
		return nil
	}

	c.send(&OpFrame{Op: opSubscribe, Channel: channelTicker, Market: req.Symbol})
	c.subscribePrivate()
	return nil
}

func (c *StreamConnector) Unsubscribe(req model.SubscribeRequest) {
	if !c.state.Symbols.Has(req.Symbol) {
		c.writeLog("symbol not found: " + req.Symbol)
		return
	}

	c.mu.Lock()
	_, removed := c.subscriptions.remove(req.Key())
	c.mu.Unlock()
	if !removed {
		return
	}
	c.send(&OpFrame{Op: opUnsubscribe, Channel: channelTicker, Market: req.Symbol})
}

func (c *StreamConnector) Subscriptions() []model.SubscribeRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscriptions.list()
}

func (c *StreamConnector) subscribePrivate() {
	c.send(&OpFrame{Op: opSubscribe, Channel: channelFills})
	c.send(&OpFrame{Op: opSubscribe, Channel: channelOrders})
}

func (c *StreamConnector) Ping() {
	c.send(&OpFrame{Op: opPing})
}

// Tick counts heartbeat ticks and pings every heartbeatThreshold ticks.
func (c *StreamConnector) Tick() {
	c.heartbeatMu.Lock()
	c.heartbeatCount++
	fire := c.heartbeatCount >= c.heartbeatThreshold
	if fire {
		c.heartbeatCount = 0
	}
	c.heartbeatMu.Unlock()

	if fire {
		c.Ping()
	}
}

func (c *StreamConnector) OnConnecting() {
	c.setState(StateConnecting)
}

// OnConnected pings, logs in, then replays subscriptions in insertion order.
func (c *StreamConnector) OnConnected() {
	c.setState(StateConnected)
	c.writeLog("websocket API connected")

	c.Ping()
	if err := c.send(c.signer.LoginFrame()); err == nil {
		c.setState(StateAuthenticated)
	}

	for _, req := range c.Subscriptions() {
		c.send(&OpFrame{Op: opSubscribe, Channel: channelTicker, Market: req.Symbol})
	}
	c.subscribePrivate()
}

func (c *StreamConnector) OnDisconnected() {
	c.setState(StateDisconnected)
	c.writeLog("websocket API disconnected")
}

// OnPacket dispatches one inbound frame. A frame that fails to decode or
// panics a handler is logged and dropped.
func (c *StreamConnector) OnPacket(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(context.Background(), "frame handler panic",
				zap.Any("panic", r), zap.ByteString("frame", data))
		}
	}()

	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		c.logger.Warn(context.Background(), "drop malformed frame", zap.ByteString("frame", data), zap.Error(err))
		return
	}

	frameType := string(v.GetStringBytes("type"))
	switch frameType {
	case frameTypeUpdate, frameTypePartial:
	case frameTypePong, frameTypeSubscribed, frameTypeUnsubscribed, frameTypeInfo:
		c.logger.Debug(context.Background(), "control frame", zap.String("type", frameType),
			zap.String("channel", string(v.GetStringBytes("channel"))))
		return
	case frameTypeError:
		c.logger.Error(context.Background(), "exchange error frame",
			zap.Int("code", v.GetInt("code")), zap.String("msg", string(v.GetStringBytes("msg"))))
		c.writeLog(fmt.Sprintf("websocket error, code: %d, message: %s", v.GetInt("code"), v.GetStringBytes("msg")))
		return
	default:
		c.logger.Info(context.Background(), "unhandled frame type", zap.ByteString("frame", data))
		return
	}

	channel := string(v.GetStringBytes("channel"))
	payload := v.Get("data")
	if payload == nil {
		c.logger.Warn(context.Background(), "update frame without data", zap.ByteString("frame", data))
		return
	}
	metrics.WSFrames.WithLabelValues(channel).Inc()
	raw := payload.MarshalTo(nil)

	switch channel {
	case channelTicker:
		c.onTicker(string(v.GetStringBytes("market")), raw)
	case channelFills:
		c.onFill(raw)
	case channelOrders:
		c.onOrder(raw)
	default:
		c.logger.Info(context.Background(), "unhandled channel", zap.String("channel", channel))
	}
}

// onTicker publishes a tick only when the last trade price is set.
func (c *StreamConnector) onTicker(market string, raw []byte) {
	var t rawTicker
	if err := json.Unmarshal(raw, &t); err != nil {
		c.logger.Warn(context.Background(), "decode ticker", zap.String("market", market), zap.Error(err))
		return
	}
	if !t.Last.Valid || t.Last.Decimal.IsZero() {
		return
	}

	c.publisher.OnTick(&model.Tick{
		Symbol:     market,
		Exchange:   model.ExchangeFTX,
		Datetime:   EpochSecondsToTime(t.Time, c.state.Location),
		BidPrice1:  nullOrZero(t.Bid),
		AskPrice1:  nullOrZero(t.Ask),
		BidVolume1: nullOrZero(t.BidSize),
		AskVolume1: nullOrZero(t.AskSize),
		LastPrice:  t.Last.Decimal,
		Gateway:    c.state.Gateway,
	})
}

// onFill publishes a trade for a known order and triggers a position refresh.
// Fills for exchange ids never bound to a client id are dropped.
func (c *StreamConnector) onFill(raw []byte) {
	var f rawFill
	if err := json.Unmarshal(raw, &f); err != nil {
		c.logger.Warn(context.Background(), "decode fill", zap.Error(err))
		return
	}

	orderID, ok := c.state.Orders.Resolve(f.OrderID)
	if !ok {
		metrics.DroppedFills.Inc()
		c.logger.Warn(context.Background(), "drop fill for unknown order",
			zap.Int64("exchange_order_id", f.OrderID), zap.Int64("trade_id", f.TradeID),
			zap.Error(ErrUnknownExchangeOrderID))
		return
	}

	ts, err := ParseExchangeTime(f.Time, c.state.Location)
	if err != nil {
		c.logger.Warn(context.Background(), "fill with bad time", zap.Int64("trade_id", f.TradeID), zap.Error(err))
		ts = time.Now().In(c.state.Location)
	}

	c.publisher.OnTrade(&model.Trade{
		Symbol:    f.Market,
		Exchange:  model.ExchangeFTX,
		OrderID:   orderID,
		TradeID:   strconv.FormatInt(f.TradeID, 10),
		Direction: directionFromWire[f.Side],
		Price:     f.Price,
		Volume:    f.Size,
		Datetime:  ts,
		Gateway:   c.state.Gateway,
	})

	if c.positionRefresher != nil {
		c.positionRefresher()
	}
}

func (c *StreamConnector) onOrder(raw []byte) {
	var o rawOrder
	if err := json.Unmarshal(raw, &o); err != nil {
		c.logger.Warn(context.Background(), "decode order", zap.Error(err))
		return
	}
	c.publisher.OnOrder(c.state.Orders.Apply(&o))
}

// Reset drops all subscriptions, used at shutdown.
func (c *StreamConnector) Reset() {
	c.mu.Lock()
	c.subscriptions.clear()
	c.mu.Unlock()
	c.setState(StateDisconnected)
}

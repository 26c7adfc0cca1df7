package bus

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/joripage/ftx-gateway/pkg/metrics"
	"github.com/joripage/ftx-gateway/pkg/model"
)

// Sink writes one encoded event to a remote broker.
type Sink interface {
	Name() string
	Send(ctx context.Context, subject, key string, payload []byte) error
	Close() error
}

// Remote wraps events in the envelope and hands them to a Sink. Send errors
// are logged and counted; they never reach the connectors.
type Remote struct {
	sink    Sink
	gateway string
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewRemote(sink Sink, gateway, prefix string, logger *zap.Logger) *Remote {
	return &Remote{
		sink:    sink,
		gateway: gateway,
		prefix:  prefix,
		timeout: 5 * time.Second,
		logger:  logger.With(zap.String("bus", sink.Name())),
	}
}

func (r *Remote) publish(kind Kind, key string, data any) {
	event := NewEvent(kind, r.gateway, key, data)
	payload, err := event.Marshal()
	if err != nil {
		r.logger.Error("encode event", zap.String("kind", string(kind)), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.sink.Send(ctx, Subject(r.prefix, kind), key, payload); err != nil {
		metrics.BusPublishErrors.WithLabelValues(r.sink.Name()).Inc()
		r.logger.Warn("publish event", zap.String("kind", string(kind)), zap.String("key", key), zap.Error(err))
	}
}

func (r *Remote) OnTick(tick *model.Tick) {
	r.publish(KindTick, tick.Symbol, tick)
}

func (r *Remote) OnOrder(order *model.Order) {
	r.publish(KindOrder, order.OrderID, order)
}

func (r *Remote) OnTrade(trade *model.Trade) {
	r.publish(KindTrade, trade.OrderID, trade)
}

func (r *Remote) OnAccount(account *model.Account) {
	r.publish(KindAccount, account.AccountID, account)
}

func (r *Remote) OnPosition(position *model.Position) {
	r.publish(KindPosition, position.Symbol, position)
}

func (r *Remote) OnContract(contract *model.Contract) {
	r.publish(KindContract, contract.Symbol, contract)
}

func (r *Remote) OnLog(msg string) {
	r.publish(KindLog, r.gateway, msg)
}

func (r *Remote) Close() error {
	return r.sink.Close()
}

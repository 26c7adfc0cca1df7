package fixgateway

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/joripage/ftx-gateway/pkg/model"
)

var testSession = quickfix.SessionID{BeginString: quickfix.BeginStringFIX44, SenderCompID: "GW", TargetCompID: "CLIENT"}

type fakeRouter struct {
	mu       sync.Mutex
	sent     []*model.OrderRequest
	canceled []*model.CancelRequest
	err      error
	onSend   func(req *model.OrderRequest, orderID string)
}

func (r *fakeRouter) SendOrder(req *model.OrderRequest) (string, error) {
	r.mu.Lock()
	if r.err != nil {
		r.mu.Unlock()
		return "", r.err
	}
	r.sent = append(r.sent, req)
	orderID := "21030405060800000" + string(rune('0'+len(r.sent)))
	onSend := r.onSend
	r.mu.Unlock()
	if onSend != nil {
		onSend(req, orderID)
	}
	return orderID, nil
}

func (r *fakeRouter) CancelOrder(req *model.CancelRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = append(r.canceled, req)
}

type sentMessage struct {
	msg       *quickfix.Message
	sessionID quickfix.SessionID
}

func newTestGateway(t *testing.T, router *fakeRouter) (*FixGateway, *[]sentMessage) {
	t.Helper()
	gw := NewFixGateway(&FixGatewayConfig{}, zaptest.NewLogger(t))
	gw.AddGatewayInstance(router)
	sent := &[]sentMessage{}
	gw.send = func(m quickfix.Messagable, sessionID quickfix.SessionID) error {
		*sent = append(*sent, sentMessage{m.ToMessage(), sessionID})
		return nil
	}
	return gw, sent
}

func newOrderSingle(clOrdID string, side enum.Side, ordType enum.OrdType, qty string) newordersingle.NewOrderSingle {
	msg := newordersingle.New(
		field.NewClOrdID(clOrdID),
		field.NewSide(side),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(ordType),
	)
	msg.SetSymbol("BTC-PERP")
	msg.SetOrderQty(decimal.RequireFromString(qty), 3)
	msg.SetPrice(decimal.NewFromInt(100), 2)
	return msg
}

func ordStatusOf(t *testing.T, m sentMessage) enum.OrdStatus {
	t.Helper()
	var status field.OrdStatusField
	require.Nil(t, m.msg.Body.Get(&status))
	return status.Value()
}

func TestNewOrderSingleRoutesToGateway(t *testing.T) {
	router := &fakeRouter{}
	gw, sent := newTestGateway(t, router)

	rej := gw.app.onNewOrderSingle(newOrderSingle("C1", enum.Side_BUY, enum.OrdType_LIMIT, "1.5"), testSession)
	require.Nil(t, rej)

	require.Len(t, router.sent, 1)
	req := router.sent[0]
	assert.Equal(t, "BTC-PERP", req.Symbol)
	assert.Equal(t, model.DirectionLong, req.Direction)
	assert.Equal(t, model.OrderTypeLimit, req.Type)
	assert.True(t, decimal.RequireFromString("1.5").Equal(req.Volume))
	assert.True(t, decimal.NewFromInt(100).Equal(req.Price))
	assert.Equal(t, "C1", req.Reference)
	assert.Empty(t, *sent)
}

func TestNewOrderSingleRejects(t *testing.T) {
	cases := []struct {
		name    string
		side    enum.Side
		ordType enum.OrdType
		qty     string
		err     error
	}{
		{"unsupported order type", enum.Side_BUY, enum.OrdType_STOP, "1", nil},
		{"unsupported side", enum.Side_SELL_SHORT, enum.OrdType_LIMIT, "1", nil},
		{"zero quantity", enum.Side_BUY, enum.OrdType_LIMIT, "0", nil},
		{"gateway error", enum.Side_BUY, enum.OrdType_LIMIT, "1", errors.New("gateway not connected")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := &fakeRouter{err: tc.err}
			gw, sent := newTestGateway(t, router)

			gw.app.onNewOrderSingle(newOrderSingle("C1", tc.side, tc.ordType, tc.qty), testSession)

			assert.Empty(t, router.sent)
			require.Len(t, *sent, 1)
			assert.Equal(t, enum.OrdStatus_REJECTED, ordStatusOf(t, (*sent)[0]))
			assert.Equal(t, testSession, (*sent)[0].sessionID)

			_, ok := gw.sessionMapping.Load("C1")
			assert.False(t, ok)
		})
	}
}

func TestDuplicateClOrdIDRejected(t *testing.T) {
	router := &fakeRouter{}
	gw, sent := newTestGateway(t, router)

	gw.app.onNewOrderSingle(newOrderSingle("C1", enum.Side_BUY, enum.OrdType_LIMIT, "1"), testSession)
	gw.app.onNewOrderSingle(newOrderSingle("C1", enum.Side_BUY, enum.OrdType_LIMIT, "1"), testSession)

	assert.Len(t, router.sent, 1)
	require.Len(t, *sent, 1)
	assert.Equal(t, enum.OrdStatus_REJECTED, ordStatusOf(t, (*sent)[0]))
}

func TestOrderUpdatesBecomeExecutionReports(t *testing.T) {
	router := &fakeRouter{}
	gw, sent := newTestGateway(t, router)
	var orderID string
	router.onSend = func(req *model.OrderRequest, id string) {
		orderID = id
		// the gateway publishes SUBMITTING before SendOrder returns
		gw.OnOrder(req.CreateOrder(id, "FTX", time.Now()))
	}

	gw.app.onNewOrderSingle(newOrderSingle("C1", enum.Side_SELL, enum.OrdType_LIMIT, "2"), testSession)
	require.Len(t, *sent, 1)
	assert.Equal(t, enum.OrdStatus_PENDING_NEW, ordStatusOf(t, (*sent)[0]))

	order := testOrder(model.StatusPartTraded, 1)
	order.OrderID = orderID
	gw.OnOrder(order)
	require.Len(t, *sent, 2)
	assert.Equal(t, enum.OrdStatus_PARTIALLY_FILLED, ordStatusOf(t, (*sent)[1]))

	report := executionreport.FromMessage((*sent)[1].msg)
	clOrdID, _ := report.GetClOrdID()
	assert.Equal(t, "C1", clOrdID)

	order.Status = model.StatusAllTraded
	order.Traded = order.Volume
	gw.OnOrder(order)
	require.Len(t, *sent, 3)
	assert.Equal(t, enum.OrdStatus_FILLED, ordStatusOf(t, (*sent)[2]))

	// terminal orders are forgotten
	gw.OnOrder(order)
	assert.Len(t, *sent, 3)
	_, ok := gw.orderMapping.Load("C1")
	assert.False(t, ok)
}

func TestOrderUpdateWithoutSessionIgnored(t *testing.T) {
	gw, sent := newTestGateway(t, &fakeRouter{})

	gw.OnOrder(testOrder(model.StatusNotTraded, 0))
	order := testOrder(model.StatusNotTraded, 0)
	order.Reference = ""
	gw.OnOrder(order)

	assert.Empty(t, *sent)
}

func TestCancelRequest(t *testing.T) {
	router := &fakeRouter{}
	gw, sent := newTestGateway(t, router)
	gw.app.onNewOrderSingle(newOrderSingle("C1", enum.Side_BUY, enum.OrdType_LIMIT, "1"), testSession)

	cancel := ordercancelrequest.New(
		field.NewOrigClOrdID("C1"),
		field.NewClOrdID("C2"),
		field.NewSide(enum.Side_BUY),
		field.NewTransactTime(time.Now()),
	)
	cancel.SetSymbol("BTC-PERP")
	require.Nil(t, gw.app.onOrderCancelRequest(cancel, testSession))

	require.Len(t, router.canceled, 1)
	assert.Equal(t, "210304050608000001", router.canceled[0].OrderID)
	assert.Equal(t, "BTC-PERP", router.canceled[0].Symbol)
	assert.Empty(t, *sent)
}

func TestCancelUnknownOrderRejected(t *testing.T) {
	router := &fakeRouter{}
	gw, sent := newTestGateway(t, router)

	cancel := ordercancelrequest.New(
		field.NewOrigClOrdID("nope"),
		field.NewClOrdID("C2"),
		field.NewSide(enum.Side_BUY),
		field.NewTransactTime(time.Now()),
	)
	gw.app.onOrderCancelRequest(cancel, testSession)

	assert.Empty(t, router.canceled)
	require.Len(t, *sent, 1)
	var msgType field.MsgTypeField
	require.Nil(t, (*sent)[0].msg.Header.Get(&msgType))
	assert.Equal(t, enum.MsgType_ORDER_CANCEL_REJECT, msgType.Value())
}

func TestGetRoutingKey(t *testing.T) {
	nos := newOrderSingle("C1", enum.Side_BUY, enum.OrdType_LIMIT, "1")
	assert.Equal(t, "C1", getRoutingKey(nos.ToMessage(), testSession))

	cancel := ordercancelrequest.New(
		field.NewOrigClOrdID("C1"),
		field.NewClOrdID("C2"),
		field.NewSide(enum.Side_BUY),
		field.NewTransactTime(time.Now()),
	)
	assert.Equal(t, "C1", getRoutingKey(cancel.ToMessage(), testSession))
}

func TestStartWithoutRouter(t *testing.T) {
	gw := NewFixGateway(&FixGatewayConfig{ConfigFilepath: "missing.cfg"}, nil)
	assert.ErrorIs(t, gw.Start(), errNotStarted)
}

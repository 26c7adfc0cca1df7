package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joripage/ftx-gateway/pkg/bus"
	"github.com/joripage/ftx-gateway/pkg/ftx"
	"github.com/joripage/ftx-gateway/pkg/logging"
	"github.com/joripage/ftx-gateway/pkg/model"
)

type events struct {
	mu        sync.Mutex
	contracts []model.Contract
	orders    []model.Order
	ticks     []model.Tick
	accounts  []model.Account
}

func (e *events) publisher() *bus.Callbacks {
	return &bus.Callbacks{
		Contract: func(c *model.Contract) {
			e.mu.Lock()
			e.contracts = append(e.contracts, *c)
			e.mu.Unlock()
		},
		Order: func(o *model.Order) {
			e.mu.Lock()
			e.orders = append(e.orders, *o)
			e.mu.Unlock()
		},
		Tick: func(t *model.Tick) {
			e.mu.Lock()
			e.ticks = append(e.ticks, *t)
			e.mu.Unlock()
		},
		Account: func(a *model.Account) {
			e.mu.Lock()
			e.accounts = append(e.accounts, *a)
			e.mu.Unlock()
		},
	}
}

func (e *events) count(fn func(e *events) int) func() bool {
	return func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return fn(e) > 0
	}
}

type fakeVenue struct {
	mu     sync.Mutex
	frames []string
	conn   *websocket.Conn
}

func (v *fakeVenue) push(t *testing.T, frame string) {
	t.Helper()
	v.mu.Lock()
	defer v.mu.Unlock()
	require.NotNil(t, v.conn)
	require.NoError(t, v.conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func (v *fakeVenue) received() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.frames...)
}

func (v *fakeVenue) connected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conn != nil
}

func newFakeVenue(t *testing.T) (*fakeVenue, string, string) {
	t.Helper()
	v := &fakeVenue{}

	rest := http.NewServeMux()
	reply := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, body)
		}
	}
	rest.HandleFunc("GET /api/wallet/balances", reply(`{"success":true,"result":[{"coin":"USD","free":10,"total":10}]}`))
	rest.HandleFunc("GET /api/positions", reply(`{"success":true,"result":[]}`))
	rest.HandleFunc("GET /api/orders", reply(`{"success":true,"result":[]}`))
	rest.HandleFunc("GET /api/markets", reply(`{"success":true,"result":[{"name":"BTC-PERP","type":"future","priceIncrement":1,"sizeIncrement":0.001}]}`))
	rest.HandleFunc("POST /api/orders", reply(`{"success":true,"result":{"id":555}}`))
	restSrv := httptest.NewServer(rest)
	t.Cleanup(restSrv.Close)

	upgrader := websocket.Upgrader{}
	wsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		v.mu.Lock()
		v.conn = conn
		v.mu.Unlock()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			v.mu.Lock()
			v.frames = append(v.frames, string(data))
			v.mu.Unlock()
		}
	}))
	t.Cleanup(wsSrv.Close)

	return v, restSrv.URL, "ws" + strings.TrimPrefix(wsSrv.URL, "http")
}

func TestConnectMissingCredentials(t *testing.T) {
	g := New(&bus.Callbacks{}, logging.Wrap(nil), Options{})

	err := g.Connect(context.Background(), Settings{Key: "key"})
	require.ErrorIs(t, err, ftx.ErrMissingCredentials)
}

func TestCallsBeforeConnect(t *testing.T) {
	g := New(&bus.Callbacks{}, logging.Wrap(nil), Options{})

	_, err := g.SendOrder(&model.OrderRequest{Symbol: "BTC-PERP"})
	assert.ErrorIs(t, err, ftx.ErrNotConnected)
	assert.ErrorIs(t, g.Subscribe(model.SubscribeRequest{Symbol: "BTC-PERP"}), ftx.ErrNotConnected)
	_, err = g.QueryHistory(context.Background(), &model.HistoryRequest{Symbol: "BTC-PERP", Interval: model.IntervalMinute})
	assert.ErrorIs(t, err, ftx.ErrNotConnected)
	assert.NotPanics(t, func() {
		g.CancelOrder(&model.CancelRequest{OrderID: "1"})
		g.QueryAccount()
		g.Close()
	})
}

func TestGatewayEndToEnd(t *testing.T) {
	venue, restURL, wsURL := newFakeVenue(t)
	ev := &events{}
	loc, err := ftx.LoadLocation("")
	require.NoError(t, err)

	g := New(ev.publisher(), logging.Wrap(nil), Options{
		RestHost:      restURL,
		WebsocketHost: wsURL,
		Location:      loc,
	})
	require.NoError(t, g.Connect(context.Background(), Settings{Key: "key", Secret: "secret"}))
	defer g.Close()

	require.ErrorIs(t, g.Connect(context.Background(), Settings{Key: "key", Secret: "secret"}), ErrAlreadyConnected)

	require.Eventually(t, ev.count(func(e *events) int { return len(e.contracts) }), 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, ev.count(func(e *events) int { return len(e.accounts) }), 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, venue.connected, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return g.StreamState() == ftx.StateAuthenticated }, 5*time.Second, 10*time.Millisecond)

	_, ok := g.GetContract("BTC-PERP")
	assert.True(t, ok)
	assert.Len(t, g.Accounts(), 1)

	require.NoError(t, g.Subscribe(model.SubscribeRequest{Symbol: "BTC-PERP", Exchange: model.ExchangeFTX}))
	require.ErrorIs(t, g.Subscribe(model.SubscribeRequest{Symbol: "NOPE", Exchange: model.ExchangeFTX}), ftx.ErrUnknownSymbol)
	require.Eventually(t, func() bool {
		for _, f := range venue.received() {
			if strings.Contains(f, `"channel":"ticker"`) && strings.Contains(f, `"market":"BTC-PERP"`) {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	frames := venue.received()
	require.GreaterOrEqual(t, len(frames), 2)
	assert.JSONEq(t, `{"op":"ping"}`, frames[0])
	assert.Contains(t, frames[1], `"op":"login"`)

	venue.push(t, `{"channel":"ticker","market":"BTC-PERP","type":"update","data":{"bid":99,"ask":101,"bidSize":1,"askSize":2,"last":100,"time":1609459200.0}}`)
	require.Eventually(t, ev.count(func(e *events) int { return len(e.ticks) }), 5*time.Second, 10*time.Millisecond)

	orderID, err := g.SendOrder(&model.OrderRequest{
		Symbol:    "BTC-PERP",
		Exchange:  model.ExchangeFTX,
		Direction: model.DirectionLong,
		Type:      model.OrderTypeLimit,
		Price:     decimal.NewFromInt(100),
		Volume:    decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	order, ok := g.GetOrder(orderID)
	require.True(t, ok)
	assert.Equal(t, model.StatusSubmitting, order.Status)

	venue.push(t, `{"channel":"orders","type":"update","data":{"id":555,"clientId":"`+orderID+`","market":"BTC-PERP","type":"limit","side":"buy","price":100,"size":1,"filledSize":0,"remainingSize":1,"status":"new","createdAt":"2021-01-01T00:00:00+00:00"}}`)
	require.Eventually(t, func() bool {
		o, ok := g.GetOrder(orderID)
		return ok && o.Status == model.StatusNotTraded
	}, 5*time.Second, 10*time.Millisecond)

	g.Close()
	_, ok = g.GetOrder(orderID)
	assert.False(t, ok)
	assert.Equal(t, ftx.StateDisconnected, g.StreamState())
}

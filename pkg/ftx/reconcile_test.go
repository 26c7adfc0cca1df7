package ftx

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joripage/ftx-gateway/pkg/model"
)

func rawState(status string, size, filled, remaining int64) RawOrderState {
	return RawOrderState{
		Status:        status,
		Size:          decimal.NewFromInt(size),
		FilledSize:    decimal.NewFromInt(filled),
		RemainingSize: decimal.NewFromInt(remaining),
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name string
		raw  RawOrderState
		want model.Status
	}{
		{"new", rawState("new", 10, 0, 10), model.StatusNotTraded},
		{"new with fills still not traded", rawState("new", 10, 3, 7), model.StatusNotTraded},
		{"open untouched", rawState("open", 10, 0, 10), model.StatusNotTraded},
		{"open partial", rawState("open", 10, 3, 7), model.StatusPartTraded},
		{"open fully filled", rawState("open", 10, 10, 0), model.StatusAllTraded},
		{"closed partial", rawState("closed", 10, 3, 0), model.StatusCancelled},
		{"closed untouched", rawState("closed", 10, 0, 0), model.StatusCancelled},
		{"closed filled", rawState("closed", 10, 10, 0), model.StatusAllTraded},
		{"unknown status filled", rawState("gibberish", 1, 1, 0), model.StatusAllTraded},
		{"unknown status unfilled", rawState("gibberish", 1, 0, 1), model.StatusUnrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.raw))
		})
	}
}

func TestReconcileDecimalScale(t *testing.T) {
	raw := RawOrderState{
		Status:        "open",
		Size:          decimal.RequireFromString("0.10"),
		FilledSize:    decimal.RequireFromString("0.1"),
		RemainingSize: decimal.Zero,
	}
	assert.Equal(t, model.StatusAllTraded, Reconcile(raw))
}

func strPtr(s string) *string {
	return &s
}

func TestApplyKeepsLocalFields(t *testing.T) {
	state := newTestState(t)
	req := &model.OrderRequest{
		Symbol:    "BTC-PERP",
		Exchange:  model.ExchangeFTX,
		Direction: model.DirectionLong,
		Type:      model.OrderTypeLimit,
		Price:     decimal.NewFromInt(100),
		Volume:    decimal.NewFromInt(2),
		Reference: "strategy-a",
	}
	state.Orders.Put(req.CreateOrder("42", "FTX", time.Now()))

	order := state.Orders.Apply(&rawOrder{
		ID:            9001,
		ClientID:      strPtr("42"),
		Market:        "BTC-PERP",
		Type:          "limit",
		Side:          "buy",
		Price:         decimal.NewFromInt(100),
		Size:          decimal.NewFromInt(2),
		FilledSize:    decimal.NewFromInt(1),
		RemainingSize: decimal.NewFromInt(1),
		Status:        "open",
		CreatedAt:     "2019-03-05T09:56:55.728933+00:00",
	})

	assert.Equal(t, "42", order.OrderID)
	assert.Equal(t, int64(9001), order.ExchangeOrderID)
	assert.Equal(t, model.StatusPartTraded, order.Status)
	assert.Equal(t, "strategy-a", order.Reference)
	assert.True(t, decimal.NewFromInt(1).Equal(order.Traded))
	assert.Equal(t, state.Location, order.Datetime.Location())
	assert.Equal(t, 17, order.Datetime.Hour())

	orderID, ok := state.Orders.Resolve(9001)
	require.True(t, ok)
	assert.Equal(t, "42", orderID)
}

func TestApplyWithoutClientID(t *testing.T) {
	state := newTestState(t)

	order := state.Orders.Apply(&rawOrder{
		ID:            777,
		Market:        "ETH/USD",
		Type:          "market",
		Side:          "sell",
		Size:          decimal.NewFromInt(3),
		FilledSize:    decimal.Zero,
		RemainingSize: decimal.NewFromInt(3),
		Status:        "new",
		CreatedAt:     "2021-01-01T00:00:00+00:00",
	})

	assert.Equal(t, "777", order.OrderID)
	assert.Equal(t, model.DirectionShort, order.Direction)
	assert.Equal(t, model.OrderTypeMarket, order.Type)
	assert.Equal(t, model.StatusNotTraded, order.Status)

	cached, ok := state.Orders.Get("777")
	require.True(t, ok)
	assert.Equal(t, *order, cached)
}

func TestRejectOnlyFromListedStatus(t *testing.T) {
	state := newTestState(t)
	state.Orders.Put(&model.Order{OrderID: "1", Status: model.StatusSubmitting})
	state.Orders.Put(&model.Order{OrderID: "2", Status: model.StatusNotTraded})
	state.Orders.Put(&model.Order{OrderID: "3", Status: model.StatusAllTraded})

	order, ok := state.Orders.Reject("1", model.StatusSubmitting)
	require.True(t, ok)
	assert.Equal(t, model.StatusRejected, order.Status)

	_, ok = state.Orders.Reject("2", model.StatusSubmitting)
	assert.False(t, ok)

	_, ok = state.Orders.Reject("3", activeStatuses...)
	assert.False(t, ok)

	_, ok = state.Orders.Reject("missing", activeStatuses...)
	assert.False(t, ok)

	cached, _ := state.Orders.Get("2")
	assert.Equal(t, model.StatusNotTraded, cached.Status)
}

func TestPutStoresCopy(t *testing.T) {
	state := newTestState(t)
	order := &model.Order{OrderID: "1", Status: model.StatusSubmitting}
	state.Orders.Put(order)
	order.Status = model.StatusCancelled

	cached, ok := state.Orders.Get("1")
	require.True(t, ok)
	assert.Equal(t, model.StatusSubmitting, cached.Status)
}

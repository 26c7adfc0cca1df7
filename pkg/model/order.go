package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Exchange string

const (
	ExchangeFTX Exchange = "FTX"
)

type Status string

const (
	StatusSubmitting   Status = "SUBMITTING"
	StatusNotTraded    Status = "NOT_TRADED"
	StatusPartTraded   Status = "PART_TRADED"
	StatusAllTraded    Status = "ALL_TRADED"
	StatusCancelled    Status = "CANCELLED"
	StatusRejected     Status = "REJECTED"
	StatusUnrecognized Status = "UNRECOGNIZED"
)

// IsActive reports whether an order in this status can still trade or be cancelled.
func (s Status) IsActive() bool {
	switch s {
	case StatusSubmitting, StatusNotTraded, StatusPartTraded:
		return true
	}
	return false
}

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

type Order struct {
	OrderID         string
	ExchangeOrderID int64
	Symbol          string
	Exchange        Exchange
	Direction       Direction
	Type            OrderType
	Price           decimal.Decimal
	Volume          decimal.Decimal
	Traded          decimal.Decimal
	Status          Status
	Datetime        time.Time
	Reference       string
	Gateway         string
}

// VtOrderID is the gateway-qualified order id handed back to the host.
func (o *Order) VtOrderID() string {
	return fmt.Sprintf("%s.%s", o.Gateway, o.OrderID)
}

func (o *Order) IsActive() bool {
	return o.Status.IsActive()
}

type Trade struct {
	Symbol    string
	Exchange  Exchange
	OrderID   string
	TradeID   string
	Direction Direction
	Price     decimal.Decimal
	Volume    decimal.Decimal
	Datetime  time.Time
	Gateway   string
}

type OrderRequest struct {
	Symbol    string
	Exchange  Exchange
	Direction Direction
	Type      OrderType
	Price     decimal.Decimal
	Volume    decimal.Decimal
	Reference string
}

// CreateOrder builds the local SUBMITTING order for a request before it reaches the exchange.
func (r *OrderRequest) CreateOrder(orderID, gateway string, now time.Time) *Order {
	return &Order{
		OrderID:   orderID,
		Symbol:    r.Symbol,
		Exchange:  r.Exchange,
		Direction: r.Direction,
		Type:      r.Type,
		Price:     r.Price,
		Volume:    r.Volume,
		Traded:    decimal.Zero,
		Status:    StatusSubmitting,
		Datetime:  now,
		Reference: r.Reference,
		Gateway:   gateway,
	}
}

type CancelRequest struct {
	OrderID  string
	Symbol   string
	Exchange Exchange
}

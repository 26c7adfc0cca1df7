package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Product string

const (
	ProductSpot    Product = "SPOT"
	ProductFutures Product = "FUTURES"
)

type Interval string

const (
	IntervalMinute Interval = "1m"
	IntervalHour   Interval = "1h"
	IntervalDaily  Interval = "d"
	IntervalWeekly Interval = "w"
)

type Contract struct {
	Symbol      string
	Exchange    Exchange
	Name        string
	PriceTick   decimal.Decimal
	MinVolume   decimal.Decimal
	Size        decimal.Decimal
	Product     Product
	NetPosition bool
	HistoryData bool
	Gateway     string
}

type Tick struct {
	Symbol     string
	Exchange   Exchange
	Datetime   time.Time
	BidPrice1  decimal.Decimal
	AskPrice1  decimal.Decimal
	BidVolume1 decimal.Decimal
	AskVolume1 decimal.Decimal
	LastPrice  decimal.Decimal
	Gateway    string
}

type Bar struct {
	Symbol     string
	Exchange   Exchange
	Datetime   time.Time
	Interval   Interval
	Volume     decimal.Decimal
	OpenPrice  decimal.Decimal
	HighPrice  decimal.Decimal
	LowPrice   decimal.Decimal
	ClosePrice decimal.Decimal
	Gateway    string
}

type Account struct {
	AccountID string
	Balance   decimal.Decimal
	Available decimal.Decimal
	Frozen    decimal.Decimal
	Gateway   string
}

type Position struct {
	Symbol    string
	Exchange  Exchange
	Direction Direction
	Volume    decimal.Decimal
	Price     decimal.Decimal
	PnL       decimal.Decimal
	Gateway   string
}

type SubscribeRequest struct {
	Symbol   string
	Exchange Exchange
}

// Key identifies a subscription in the registry.
func (r SubscribeRequest) Key() string {
	return fmt.Sprintf("%s.%s", r.Symbol, r.Exchange)
}

type HistoryRequest struct {
	Symbol   string
	Exchange Exchange
	Start    time.Time
	End      time.Time
	Interval Interval
}

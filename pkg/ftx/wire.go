package ftx

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/joripage/ftx-gateway/pkg/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	opPing        = "ping"
	opLogin       = "login"
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"

	channelTicker = "ticker"
	channelFills  = "fills"
	channelOrders = "orders"

	frameTypeUpdate       = "update"
	frameTypePartial      = "partial"
	frameTypePong         = "pong"
	frameTypeSubscribed   = "subscribed"
	frameTypeUnsubscribed = "unsubscribed"
	frameTypeInfo         = "info"
	frameTypeError        = "error"

	wireStatusNew    = "new"
	wireStatusOpen   = "open"
	wireStatusClosed = "closed"
)

var directionToWire = map[model.Direction]string{
	model.DirectionLong:  "buy",
	model.DirectionShort: "sell",
}

var directionFromWire = map[string]model.Direction{
	"buy":  model.DirectionLong,
	"sell": model.DirectionShort,
}

var orderTypeToWire = map[model.OrderType]string{
	model.OrderTypeLimit:  "limit",
	model.OrderTypeMarket: "market",
}

var orderTypeFromWire = map[string]model.OrderType{
	"limit":  model.OrderTypeLimit,
	"market": model.OrderTypeMarket,
}

var productFromWire = map[string]model.Product{
	"spot":   model.ProductSpot,
	"future": model.ProductFutures,
}

var intervalSeconds = map[model.Interval]int64{
	model.IntervalMinute: 60,
	model.IntervalHour:   3600,
	model.IntervalDaily:  86400,
	model.IntervalWeekly: 604800,
}

// IntervalSeconds is the candle resolution sent for a bar interval.
func IntervalSeconds(interval model.Interval) (int64, error) {
	sec, ok := intervalSeconds[interval]
	if !ok {
		return 0, ErrUnsupportedInterval
	}
	return sec, nil
}

type restResponse[T any] struct {
	Success bool   `json:"success"`
	Result  T      `json:"result"`
	Error   string `json:"error,omitempty"`
}

type rawBalance struct {
	Coin  string          `json:"coin"`
	Free  decimal.Decimal `json:"free"`
	Total decimal.Decimal `json:"total"`
}

type rawPosition struct {
	Future        string              `json:"future"`
	Side          string              `json:"side"`
	Size          decimal.Decimal     `json:"size"`
	EntryPrice    decimal.NullDecimal `json:"entryPrice"`
	UnrealizedPnl decimal.Decimal     `json:"unrealizedPnl"`
}

type rawOrder struct {
	ID            int64           `json:"id"`
	ClientID      *string         `json:"clientId"`
	Market        string          `json:"market"`
	Type          string          `json:"type"`
	Side          string          `json:"side"`
	Price         decimal.Decimal `json:"price"`
	Size          decimal.Decimal `json:"size"`
	FilledSize    decimal.Decimal `json:"filledSize"`
	RemainingSize decimal.Decimal `json:"remainingSize"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"createdAt"`
}

type rawMarket struct {
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	PriceIncrement decimal.Decimal `json:"priceIncrement"`
	SizeIncrement  decimal.Decimal `json:"sizeIncrement"`
}

type rawCandle struct {
	Time   float64         `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

type rawFill struct {
	ID      int64           `json:"id"`
	Market  string          `json:"market"`
	OrderID int64           `json:"orderId"`
	TradeID int64           `json:"tradeId"`
	Side    string          `json:"side"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	Time    string          `json:"time"`
}

type rawTicker struct {
	Bid     decimal.NullDecimal `json:"bid"`
	Ask     decimal.NullDecimal `json:"ask"`
	BidSize decimal.NullDecimal `json:"bidSize"`
	AskSize decimal.NullDecimal `json:"askSize"`
	Last    decimal.NullDecimal `json:"last"`
	Time    float64             `json:"time"`
}

// orderBody sends numbers, not decimal strings; price is null for market orders.
type orderBody struct {
	Market            string   `json:"market"`
	Side              string   `json:"side"`
	Price             *float64 `json:"price"`
	Type              string   `json:"type"`
	Size              float64  `json:"size"`
	ReduceOnly        bool     `json:"reduceOnly"`
	Ioc               bool     `json:"ioc"`
	PostOnly          bool     `json:"postOnly"`
	ClientID          string   `json:"clientId"`
	RejectOnPriceBand bool     `json:"rejectOnPriceBand"`
}

// OpFrame is a ping/subscribe/unsubscribe frame.
type OpFrame struct {
	Op      string `json:"op"`
	Channel string `json:"channel,omitempty"`
	Market  string `json:"market,omitempty"`
}

type LoginFrame struct {
	Op   string    `json:"op"`
	Args LoginArgs `json:"args"`
}

type LoginArgs struct {
	Key  string `json:"key"`
	Sign string `json:"sign"`
	Time int64  `json:"time"`
}

func nullOrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

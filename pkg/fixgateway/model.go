package fixgateway

import (
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

type NewOrderSingle struct {
	SessionID quickfix.SessionID

	Account  string
	ClOrdID  string
	Symbol   string
	OrdType  enum.OrdType
	Side     enum.Side
	Price    decimal.Decimal
	OrderQty decimal.Decimal
}

type OrderCancelRequest struct {
	SessionID quickfix.SessionID

	ClOrdID     string
	OrigClOrdID string
	Symbol      string
	Side        enum.Side
}

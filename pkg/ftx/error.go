package ftx

import "errors"

var (
	ErrMissingCredentials     = errors.New("ftx api key and secret are required")
	ErrUnknownSymbol          = errors.New("symbol not found in contract registry")
	ErrUnsupportedInterval    = errors.New("unsupported history interval")
	ErrOrderNotFound          = errors.New("order not found")
	ErrUnknownExchangeOrderID = errors.New("exchange order id not bound to a client order id")
	ErrNotConnected           = errors.New("not connected")
	ErrRequestUnsuccessful    = errors.New("exchange reported success=false")
)

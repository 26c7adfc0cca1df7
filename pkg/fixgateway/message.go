package fixgateway

import (
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/fix44/ordercancelreject"
	"github.com/shopspring/decimal"

	"github.com/joripage/ftx-gateway/pkg/model"
)

var (
	SideMapping = map[enum.Side]model.Direction{
		enum.Side_BUY:  model.DirectionLong,
		enum.Side_SELL: model.DirectionShort,
	}

	OrdTypeMapping = map[enum.OrdType]model.OrderType{
		enum.OrdType_LIMIT:  model.OrderTypeLimit,
		enum.OrdType_MARKET: model.OrderTypeMarket,
	}

	directionToSide = map[model.Direction]enum.Side{
		model.DirectionLong:  enum.Side_BUY,
		model.DirectionShort: enum.Side_SELL,
	}

	orderTypeToOrdType = map[model.OrderType]enum.OrdType{
		model.OrderTypeLimit:  enum.OrdType_LIMIT,
		model.OrderTypeMarket: enum.OrdType_MARKET,
	}
)

type reportStatus struct {
	execType  enum.ExecType
	ordStatus enum.OrdStatus
}

var statusMapping = map[model.Status]reportStatus{
	model.StatusSubmitting: {enum.ExecType_PENDING_NEW, enum.OrdStatus_PENDING_NEW},
	model.StatusNotTraded:  {enum.ExecType_NEW, enum.OrdStatus_NEW},
	model.StatusPartTraded: {enum.ExecType_TRADE, enum.OrdStatus_PARTIALLY_FILLED},
	model.StatusAllTraded:  {enum.ExecType_TRADE, enum.OrdStatus_FILLED},
	model.StatusCancelled:  {enum.ExecType_CANCELED, enum.OrdStatus_CANCELED},
	model.StatusRejected:   {enum.ExecType_REJECTED, enum.OrdStatus_REJECTED},
}

const qtyScale = 8

// orderToExecutionReport returns false for statuses that have no FIX
// counterpart.
func orderToExecutionReport(order *model.Order, clOrdID string, execID string) (executionreport.ExecutionReport, bool) {
	st, ok := statusMapping[order.Status]
	if !ok {
		return executionreport.ExecutionReport{}, false
	}

	leaves := order.Volume.Sub(order.Traded)
	if !order.IsActive() || leaves.IsNegative() {
		leaves = decimal.Zero
	}

	msg := executionreport.New(
		field.NewOrderID(order.OrderID),
		field.NewExecID(execID),
		field.NewExecType(st.execType),
		field.NewOrdStatus(st.ordStatus),
		field.NewSide(directionToSide[order.Direction]),
		field.NewLeavesQty(leaves, qtyScale),
		field.NewCumQty(order.Traded, qtyScale),
		field.NewAvgPx(decimal.Zero, qtyScale),
	)
	msg.SetClOrdID(clOrdID)
	msg.SetSymbol(order.Symbol)
	msg.SetOrderQty(order.Volume, qtyScale)
	if order.Type == model.OrderTypeLimit {
		msg.SetPrice(order.Price, qtyScale)
	}
	if ordType, ok := orderTypeToOrdType[order.Type]; ok {
		msg.SetOrdType(ordType)
	}
	msg.SetTransactTime(order.Datetime)
	return msg, true
}

// rejectReport answers a NewOrderSingle the gateway could not accept.
func rejectReport(req *NewOrderSingle, execID string, text string) executionreport.ExecutionReport {
	msg := executionreport.New(
		field.NewOrderID("NONE"),
		field.NewExecID(execID),
		field.NewExecType(enum.ExecType_REJECTED),
		field.NewOrdStatus(enum.OrdStatus_REJECTED),
		field.NewSide(req.Side),
		field.NewLeavesQty(decimal.Zero, qtyScale),
		field.NewCumQty(decimal.Zero, qtyScale),
		field.NewAvgPx(decimal.Zero, qtyScale),
	)
	msg.SetClOrdID(req.ClOrdID)
	msg.SetSymbol(req.Symbol)
	msg.SetOrderQty(req.OrderQty, qtyScale)
	msg.SetOrdRejReason(enum.OrdRejReason_OTHER)
	msg.SetText(text)
	return msg
}

func cancelReject(req *OrderCancelRequest, text string) ordercancelreject.OrderCancelReject {
	msg := ordercancelreject.New(
		field.NewOrderID("NONE"),
		field.NewClOrdID(req.ClOrdID),
		field.NewOrigClOrdID(req.OrigClOrdID),
		field.NewOrdStatus(enum.OrdStatus_REJECTED),
		field.NewCxlRejResponseTo(enum.CxlRejResponseTo_ORDER_CANCEL_REQUEST),
	)
	msg.SetCxlRejReason(enum.CxlRejReason_UNKNOWN_ORDER)
	msg.SetText(text)
	return msg
}

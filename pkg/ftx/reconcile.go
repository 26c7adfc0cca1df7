package ftx

import (
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/ftx-gateway/pkg/model"
)

// RawOrderState is the slice of an exchange order report that decides status.
type RawOrderState struct {
	Status        string
	Size          decimal.Decimal
	FilledSize    decimal.Decimal
	RemainingSize decimal.Decimal
}

// Reconcile maps an exchange order report to a normalized status.
// Rules are evaluated in order and the first match wins.
func Reconcile(raw RawOrderState) model.Status {
	switch {
	case raw.Status == wireStatusNew:
		return model.StatusNotTraded
	case raw.Status == wireStatusOpen && raw.FilledSize.IsZero():
		return model.StatusNotTraded
	case raw.Status == wireStatusOpen && !raw.FilledSize.Equal(raw.Size):
		return model.StatusPartTraded
	case raw.Status == wireStatusClosed && !raw.FilledSize.Equal(raw.Size):
		return model.StatusCancelled
	case raw.RemainingSize.IsZero() && raw.FilledSize.Equal(raw.Size):
		return model.StatusAllTraded
	}
	return model.StatusUnrecognized
}

// OrderReconciler is the process-wide order cache. It correlates exchange ids
// with client ids and owns every status transition published for an order.
type OrderReconciler struct {
	mu          sync.Mutex
	orders      map[string]*model.Order
	exchangeIDs map[int64]string
	gateway     string
	loc         *time.Location
	logger      *zap.Logger
}

func NewOrderReconciler(gateway string, loc *time.Location, logger *zap.Logger) *OrderReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderReconciler{
		orders:      make(map[string]*model.Order),
		exchangeIDs: make(map[int64]string),
		gateway:     gateway,
		loc:         loc,
		logger:      logger,
	}
}

func (r *OrderReconciler) Put(order *model.Order) {
	cp := *order
	r.mu.Lock()
	r.orders[cp.OrderID] = &cp
	r.mu.Unlock()
}

func (r *OrderReconciler) Get(orderID string) (model.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return model.Order{}, false
	}
	return *order, true
}

func (r *OrderReconciler) Bind(exchangeID int64, orderID string) {
	r.mu.Lock()
	r.exchangeIDs[exchangeID] = orderID
	r.mu.Unlock()
}

func (r *OrderReconciler) Resolve(exchangeID int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	orderID, ok := r.exchangeIDs[exchangeID]
	return orderID, ok
}

func (r *OrderReconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// Reject moves an order to REJECTED when its current status is one of from.
// It returns the updated copy and true only when the transition happened.
func (r *OrderReconciler) Reject(orderID string, from ...model.Status) (*model.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return nil, false
	}
	for _, s := range from {
		if order.Status == s {
			order.Status = model.StatusRejected
			cp := *order
			return &cp, true
		}
	}
	return nil, false
}

// Apply folds an exchange order report into the cache and returns the copy
// to publish. Reports without a client id are keyed by their exchange id.
func (r *OrderReconciler) Apply(raw *rawOrder) *model.Order {
	orderID := strconv.FormatInt(raw.ID, 10)
	if raw.ClientID != nil && *raw.ClientID != "" {
		orderID = *raw.ClientID
	}

	status := Reconcile(RawOrderState{
		Status:        raw.Status,
		Size:          raw.Size,
		FilledSize:    raw.FilledSize,
		RemainingSize: raw.RemainingSize,
	})
	if status == model.StatusUnrecognized {
		r.logger.Warn("unrecognized order report",
			zap.String("order_id", orderID),
			zap.Int64("exchange_order_id", raw.ID),
			zap.String("status", raw.Status),
			zap.String("size", raw.Size.String()),
			zap.String("filled_size", raw.FilledSize.String()),
			zap.String("remaining_size", raw.RemainingSize.String()))
	}

	created, err := ParseExchangeTime(raw.CreatedAt, r.loc)
	if err != nil {
		r.logger.Warn("order report with bad createdAt", zap.String("order_id", orderID), zap.Error(err))
		created = time.Now().In(r.loc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.exchangeIDs[raw.ID] = orderID
	order, ok := r.orders[orderID]
	if !ok {
		order = &model.Order{
			OrderID:  orderID,
			Exchange: model.ExchangeFTX,
			Gateway:  r.gateway,
		}
		r.orders[orderID] = order
	}
	order.ExchangeOrderID = raw.ID
	order.Symbol = raw.Market
	if d, ok := directionFromWire[raw.Side]; ok {
		order.Direction = d
	}
	if t, ok := orderTypeFromWire[raw.Type]; ok {
		order.Type = t
	}
	order.Price = raw.Price
	order.Volume = raw.Size
	order.Traded = raw.FilledSize
	order.Status = status
	order.Datetime = created

	cp := *order
	return &cp
}

func (r *OrderReconciler) Reset() {
	r.mu.Lock()
	r.orders = make(map[string]*model.Order)
	r.exchangeIDs = make(map[int64]string)
	r.mu.Unlock()
}

// activeStatuses are the statuses a failed cancel may still reject.
var activeStatuses = []model.Status{
	model.StatusSubmitting,
	model.StatusNotTraded,
	model.StatusPartTraded,
}

package ftx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/ftx-gateway/pkg/logging"
	"github.com/joripage/ftx-gateway/pkg/metrics"
	"github.com/joripage/ftx-gateway/pkg/model"
)

const (
	DefaultRestHost    = "https://ftx.com"
	defaultRestTimeout = 10 * time.Second
)

type RestConfig struct {
	Host      string
	ProxyHost string
	ProxyPort int
	Timeout   time.Duration
}

type restRequest struct {
	Endpoint string
	Method   string
	Path     string
	Query    url.Values
	Body     any
	Security Security
}

// RestConnector issues signed REST calls and turns the replies into records.
// Mutating calls return immediately and complete on their own goroutine.
type RestConnector struct {
	host      string
	client    *resty.Client
	signer    *Signer
	state     *State
	publisher Publisher
	logger    *logging.Logger
	wg        sync.WaitGroup
}

// NewRestConnector accepts a nil signer for unauthenticated use such as
// history download; signed calls then fail with ErrMissingCredentials.
func NewRestConnector(cfg *RestConfig, signer *Signer, state *State, publisher Publisher, logger *logging.Logger) *RestConnector {
	host := cfg.Host
	if host == "" {
		host = DefaultRestHost
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRestTimeout
	}

	logger = logger.With(zap.String("component", "ftx.rest"))
	client := resty.New().
		SetTimeout(timeout).
		SetLogger(logger.Zap().Sugar())
	if proxy := proxyURL(cfg.ProxyHost, cfg.ProxyPort); proxy != nil {
		client.SetProxy(proxy.String())
	}

	return &RestConnector{
		host:      host,
		client:    client,
		signer:    signer,
		state:     state,
		publisher: publisher,
		logger:    logger,
	}
}

// proxyURL builds http://host:port, or nil when either part is missing.
func proxyURL(host string, port int) *url.URL {
	if host == "" || port <= 0 {
		return nil
	}
	return &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", host, port)}
}

func (c *RestConnector) do(ctx context.Context, req *restRequest, out any) error {
	ctx = logging.WithRequestID(ctx, logging.NewRequestID())

	path := req.Path
	if len(req.Query) > 0 {
		path += "?" + req.Query.Encode()
	}

	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return &RequestError{Kind: KindTerminal, Method: req.Method, Path: path, Err: errors.Wrap(err, "encode body")}
		}
	}

	r := c.client.R().SetContext(ctx)
	if req.Security == SecuritySigned {
		if c.signer == nil {
			return &RequestError{Kind: KindTerminal, Method: req.Method, Path: path, Err: ErrMissingCredentials}
		}
		r.SetHeaderMultiValues(c.signer.SignRequest(req.Method, path, payload))
	} else if len(payload) > 0 {
		r.SetHeader("Content-Type", "application/json")
	}
	if len(payload) > 0 {
		r.SetBody(payload)
	}

	c.logger.Debug(ctx, "rest request", zap.String("method", req.Method), zap.String("path", path))

	start := time.Now()
	resp, err := r.Execute(req.Method, c.host+path)
	metrics.RestLatency.WithLabelValues(req.Endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		reqErr := &RequestError{Kind: classify(err), Method: req.Method, Path: path, Err: errors.Wrap(err, "send request")}
		metrics.RestErrors.WithLabelValues(req.Endpoint, reqErr.Kind.String()).Inc()
		return reqErr
	}
	data := resp.Body()
	if resp.StatusCode()/100 != 2 {
		metrics.RestErrors.WithLabelValues(req.Endpoint, KindRejected.String()).Inc()
		return &RequestError{Kind: KindRejected, Method: req.Method, Path: path, StatusCode: resp.StatusCode(), Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		metrics.RestErrors.WithLabelValues(req.Endpoint, KindTerminal.String()).Inc()
		return &RequestError{Kind: KindTerminal, Method: req.Method, Path: path, StatusCode: resp.StatusCode(), Body: string(data), Err: errors.Wrap(err, "decode response")}
	}
	return nil
}

func (c *RestConnector) writeLog(msg string) {
	c.logger.Info(context.Background(), msg)
	c.publisher.OnLog(msg)
}

func (c *RestConnector) logQueryError(ctx context.Context, what string, err error) {
	if KindOf(err) == KindTransient {
		c.logger.Warn(ctx, what+" failed", zap.Error(err))
	} else {
		c.logger.Error(ctx, what+" failed", zap.Error(err))
	}
	c.writeLog(fmt.Sprintf("%s failed: %v", what, err))
}

// QueryAccount publishes every non-zero wallet balance.
func (c *RestConnector) QueryAccount(ctx context.Context) ([]model.Account, error) {
	var resp restResponse[[]rawBalance]
	err := c.do(ctx, &restRequest{
		Endpoint: "wallet_balances",
		Method:   http.MethodGet,
		Path:     "/api/wallet/balances",
		Security: SecuritySigned,
	}, &resp)
	if err == nil && !resp.Success {
		err = errors.Wrap(ErrRequestUnsuccessful, resp.Error)
	}
	if err != nil {
		c.logQueryError(ctx, "query account", err)
		return nil, err
	}

	accounts := make([]model.Account, 0, len(resp.Result))
	for _, b := range resp.Result {
		if b.Total.IsZero() {
			continue
		}
		account := model.Account{
			AccountID: b.Coin,
			Balance:   b.Total,
			Available: b.Free,
			Frozen:    b.Total.Sub(b.Free),
			Gateway:   c.state.Gateway,
		}
		accounts = append(accounts, account)
		c.publisher.OnAccount(&account)
	}
	c.state.Snapshots.SetAccounts(accounts)
	c.writeLog("account query succeeded")
	return accounts, nil
}

// QueryPosition publishes open positions; entries with no entry price or
// zero size are skipped.
func (c *RestConnector) QueryPosition(ctx context.Context) ([]model.Position, error) {
	var resp restResponse[[]rawPosition]
	err := c.do(ctx, &restRequest{
		Endpoint: "positions",
		Method:   http.MethodGet,
		Path:     "/api/positions",
		Security: SecuritySigned,
	}, &resp)
	if err == nil && !resp.Success {
		err = errors.Wrap(ErrRequestUnsuccessful, resp.Error)
	}
	if err != nil {
		c.logQueryError(ctx, "query position", err)
		return nil, err
	}

	positions := make([]model.Position, 0, len(resp.Result))
	for _, p := range resp.Result {
		if !p.EntryPrice.Valid || p.Size.IsZero() {
			continue
		}
		position := model.Position{
			Symbol:    p.Future,
			Exchange:  model.ExchangeFTX,
			Direction: directionFromWire[p.Side],
			Volume:    p.Size,
			Price:     p.EntryPrice.Decimal,
			PnL:       p.UnrealizedPnl,
			Gateway:   c.state.Gateway,
		}
		positions = append(positions, position)
		c.publisher.OnPosition(&position)
	}
	c.state.Snapshots.SetPositions(positions)
	return positions, nil
}

// QueryOpenOrders reconciles and publishes every open order.
func (c *RestConnector) QueryOpenOrders(ctx context.Context) ([]model.Order, error) {
	var resp restResponse[[]rawOrder]
	err := c.do(ctx, &restRequest{
		Endpoint: "orders",
		Method:   http.MethodGet,
		Path:     "/api/orders",
		Security: SecuritySigned,
	}, &resp)
	if err == nil && !resp.Success {
		err = errors.Wrap(ErrRequestUnsuccessful, resp.Error)
	}
	if err != nil {
		c.logQueryError(ctx, "query orders", err)
		return nil, err
	}

	orders := make([]model.Order, 0, len(resp.Result))
	for i := range resp.Result {
		order := c.state.Orders.Apply(&resp.Result[i])
		orders = append(orders, *order)
		c.publisher.OnOrder(order)
	}
	c.writeLog("order query succeeded")
	return orders, nil
}

// QueryContracts refreshes the symbol registry and publishes every market.
func (c *RestConnector) QueryContracts(ctx context.Context) ([]model.Contract, error) {
	var resp restResponse[[]rawMarket]
	err := c.do(ctx, &restRequest{
		Endpoint: "markets",
		Method:   http.MethodGet,
		Path:     "/api/markets",
		Security: SecurityNone,
	}, &resp)
	if err == nil && !resp.Success {
		err = errors.Wrap(ErrRequestUnsuccessful, resp.Error)
	}
	if err != nil {
		c.logQueryError(ctx, "query contracts", err)
		return nil, err
	}

	contracts := make([]model.Contract, 0, len(resp.Result))
	for _, m := range resp.Result {
		product, ok := productFromWire[m.Type]
		if !ok {
			c.logger.Debug(ctx, "skip market with unknown type", zap.String("market", m.Name), zap.String("type", m.Type))
			continue
		}
		contracts = append(contracts, model.Contract{
			Symbol:      m.Name,
			Exchange:    model.ExchangeFTX,
			Name:        m.Name,
			PriceTick:   m.PriceIncrement,
			MinVolume:   m.SizeIncrement,
			Size:        decimal.NewFromInt(1),
			Product:     product,
			NetPosition: true,
			HistoryData: true,
			Gateway:     c.state.Gateway,
		})
	}

	c.state.Symbols.Replace(contracts)
	for i := range contracts {
		contract := contracts[i]
		c.publisher.OnContract(&contract)
	}
	c.writeLog("contract query succeeded")
	return contracts, nil
}

// SendOrder registers and publishes a SUBMITTING order, then submits it in
// the background. The returned id is the client order id.
func (c *RestConnector) SendOrder(ctx context.Context, req *model.OrderRequest) string {
	orderID := c.state.OrderIDs.NextString()
	order := req.CreateOrder(orderID, c.state.Gateway, time.Now().In(c.state.Location))
	c.state.Orders.Put(order)
	c.publisher.OnOrder(order)
	metrics.OrdersSent.WithLabelValues(string(req.Type)).Inc()

	body := &orderBody{
		Market:   req.Symbol,
		Side:     directionToWire[req.Direction],
		Type:     orderTypeToWire[req.Type],
		Size:     req.Volume.InexactFloat64(),
		ClientID: orderID,
	}
	if req.Type != model.OrderTypeMarket {
		price := req.Price.InexactFloat64()
		body.Price = &price
	}

	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.do(ctx, &restRequest{
			Endpoint: "place_order",
			Method:   http.MethodPost,
			Path:     "/api/orders",
			Body:     body,
			Security: SecuritySigned,
		}, nil)
		if err != nil {
			c.onSendOrderFailed(ctx, orderID, err)
		}
	}()
	return orderID
}

// onSendOrderFailed rejects the order only if no exchange report has moved it
// past SUBMITTING in the meantime.
func (c *RestConnector) onSendOrderFailed(ctx context.Context, orderID string, err error) {
	if order, ok := c.state.Orders.Reject(orderID, model.StatusSubmitting); ok {
		metrics.OrdersRejected.Inc()
		c.publisher.OnOrder(order)
	}

	fields := []zap.Field{zap.String("order_id", orderID), zap.Error(err)}
	switch KindOf(err) {
	case KindRejected:
		var reqErr *RequestError
		errors.As(err, &reqErr)
		c.logger.Warn(ctx, "send order rejected", fields...)
		c.writeLog(fmt.Sprintf("send order failed, status code: %d, message: %s", reqErr.StatusCode, reqErr.Body))
	case KindTransient:
		c.logger.Warn(ctx, "send order transport error", fields...)
		c.writeLog(fmt.Sprintf("send order failed: %v", err))
	default:
		c.logger.Error(ctx, "send order error", fields...)
		c.writeLog(fmt.Sprintf("send order failed: %v", err))
	}
}

// CancelOrder cancels by client id. Unknown ids return ErrOrderNotFound and
// nothing is sent.
func (c *RestConnector) CancelOrder(ctx context.Context, req *model.CancelRequest) error {
	if _, ok := c.state.Orders.Get(req.OrderID); !ok {
		c.logger.Warn(ctx, "cancel for unknown order ignored", zap.String("order_id", req.OrderID))
		return ErrOrderNotFound
	}

	ctx = context.WithoutCancel(ctx)
	orderID := req.OrderID
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.do(ctx, &restRequest{
			Endpoint: "cancel_order",
			Method:   http.MethodDelete,
			Path:     "/api/orders/by_client_id/" + url.PathEscape(orderID),
			Security: SecuritySigned,
		}, nil)
		if err != nil {
			c.onCancelOrderFailed(ctx, orderID, err)
		}
	}()
	return nil
}

func (c *RestConnector) onCancelOrderFailed(ctx context.Context, orderID string, err error) {
	if order, ok := c.state.Orders.Reject(orderID, activeStatuses...); ok {
		metrics.OrdersRejected.Inc()
		c.publisher.OnOrder(order)
	}

	if KindOf(err) == KindTransient {
		c.logger.Warn(ctx, "cancel order transport error", zap.String("order_id", orderID), zap.Error(err))
	} else {
		c.logger.Error(ctx, "cancel order failed", zap.String("order_id", orderID), zap.Error(err))
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Kind == KindRejected {
		c.writeLog(fmt.Sprintf("cancel order failed, status code: %d, message: %s", reqErr.StatusCode, reqErr.Body))
		return
	}
	c.writeLog(fmt.Sprintf("cancel order failed: %v", err))
}

// QueryHistory downloads candles in one request. A reply with no candles
// yields an empty slice.
func (c *RestConnector) QueryHistory(ctx context.Context, req *model.HistoryRequest) ([]model.Bar, error) {
	resolution, err := IntervalSeconds(req.Interval)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("resolution", strconv.FormatInt(resolution, 10))
	query.Set("start_time", strconv.FormatInt(req.Start.Unix(), 10))
	query.Set("end_time", strconv.FormatInt(req.End.Unix(), 10))

	var resp restResponse[[]rawCandle]
	err = c.do(ctx, &restRequest{
		Endpoint: "candles",
		Method:   http.MethodGet,
		Path:     "/api/markets/" + req.Symbol + "/candles",
		Query:    query,
		Security: SecurityNone,
	}, &resp)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Kind == KindRejected {
			c.writeLog(fmt.Sprintf("history query failed, status code: %d, message: %s", reqErr.StatusCode, reqErr.Body))
		}
		return nil, err
	}

	bars := make([]model.Bar, 0, len(resp.Result))
	for _, candle := range resp.Result {
		bars = append(bars, model.Bar{
			Symbol:     req.Symbol,
			Exchange:   req.Exchange,
			Datetime:   EpochMillisToTime(candle.Time, c.state.Location),
			Interval:   req.Interval,
			Volume:     candle.Volume,
			OpenPrice:  candle.Open,
			HighPrice:  candle.High,
			LowPrice:   candle.Low,
			ClosePrice: candle.Close,
			Gateway:    c.state.Gateway,
		})
	}
	if len(bars) == 0 {
		c.writeLog("history query returned no data")
		return bars, nil
	}
	c.writeLog(fmt.Sprintf("history query succeeded, %s %s - %s", req.Symbol,
		bars[0].Datetime.Format(time.DateTime), bars[len(bars)-1].Datetime.Format(time.DateTime)))
	return bars, nil
}

// Wait blocks until background order requests finish.
func (c *RestConnector) Wait() {
	c.wg.Wait()
}

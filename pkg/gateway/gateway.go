package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joripage/ftx-gateway/pkg/ftx"
	"github.com/joripage/ftx-gateway/pkg/logging"
	"github.com/joripage/ftx-gateway/pkg/model"
	"github.com/joripage/ftx-gateway/pkg/websocket"
)

const DefaultName = "FTX"

var ErrAlreadyConnected = errors.New("gateway already connected")

type Settings struct {
	Key       string
	Secret    string
	ProxyHost string
	ProxyPort int
}

type Options struct {
	Name               string
	RestHost           string
	WebsocketHost      string
	Location           *time.Location
	HeartbeatInterval  time.Duration
	HeartbeatThreshold int
}

// Gateway is the host-facing entry point. Queries and order calls return
// at once; results arrive on the publisher.
type Gateway struct {
	opts      Options
	publisher ftx.Publisher
	logger    *logging.Logger
	state     *ftx.State

	mu        sync.Mutex
	rest      *ftx.RestConnector
	stream    *ftx.StreamConnector
	ws        *websocket.Client
	heartbeat *ftx.Heartbeat
	cancel    context.CancelFunc
	closed    bool

	queries sync.WaitGroup
}

func New(publisher ftx.Publisher, logger *logging.Logger, opts Options) *Gateway {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.RestHost == "" {
		opts.RestHost = ftx.DefaultRestHost
	}
	if opts.WebsocketHost == "" {
		opts.WebsocketHost = ftx.DefaultWebsocketHost
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = time.Second
	}
	if logger == nil {
		logger = logging.Wrap(nil)
	}
	logger = logger.With(zap.String("gateway", opts.Name))

	return &Gateway{
		opts:      opts,
		publisher: publisher,
		logger:    logger,
		state:     ftx.NewState(opts.Name, opts.Location, logger.Zap()),
	}
}

func (g *Gateway) Name() string {
	return g.opts.Name
}

// Connect starts the REST session with the initial queries, the websocket
// session and the heartbeat. Missing credentials fail here.
func (g *Gateway) Connect(ctx context.Context, settings Settings) error {
	signer, err := ftx.NewSigner(settings.Key, settings.Secret)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rest != nil || g.closed {
		return ErrAlreadyConnected
	}

	seed := g.state.OrderIDs.Reset(time.Now().In(g.opts.Location))
	g.logger.Info(ctx, "connecting", zap.Int64("order_id_seed", seed))

	g.rest = ftx.NewRestConnector(&ftx.RestConfig{
		Host:      g.opts.RestHost,
		ProxyHost: settings.ProxyHost,
		ProxyPort: settings.ProxyPort,
	}, signer, g.state, g.publisher, g.logger)
	g.writeLog("REST API started")

	g.stream = ftx.NewStreamConnector(signer, g.state, g.publisher, g.logger, g.opts.HeartbeatThreshold)
	g.stream.SetPositionRefresher(g.QueryPosition)

	var runCtx context.Context
	runCtx, g.cancel = context.WithCancel(context.WithoutCancel(ctx))
	g.ws = websocket.NewClient(websocket.Config{
		URL:       g.opts.WebsocketHost,
		ProxyHost: settings.ProxyHost,
		ProxyPort: settings.ProxyPort,
	}, g.stream, g.logger.Zap())
	g.stream.Attach(g.ws)

	rest := g.rest
	g.queries.Add(1)
	go func() {
		defer g.queries.Done()
		rest.QueryAccount(runCtx)
		rest.QueryPosition(runCtx)
		rest.QueryOpenOrders(runCtx)
		rest.QueryContracts(runCtx)
	}()

	g.ws.Start(runCtx)

	g.heartbeat = ftx.NewHeartbeat(g.opts.HeartbeatInterval, g.stream.Tick, g.logger.Zap())
	g.heartbeat.Start()
	return nil
}

func (g *Gateway) connectors() (*ftx.RestConnector, *ftx.StreamConnector, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rest == nil || g.closed {
		return nil, nil, ftx.ErrNotConnected
	}
	return g.rest, g.stream, nil
}

func (g *Gateway) writeLog(msg string) {
	g.logger.Info(context.Background(), msg)
	g.publisher.OnLog(msg)
}

func (g *Gateway) Subscribe(req model.SubscribeRequest) error {
	_, stream, err := g.connectors()
	if err != nil {
		return err
	}
	return stream.Subscribe(req)
}

func (g *Gateway) Unsubscribe(req model.SubscribeRequest) {
	if _, stream, err := g.connectors(); err == nil {
		stream.Unsubscribe(req)
	}
}

// SendOrder returns the client order id; the order is published as
// SUBMITTING before this returns.
func (g *Gateway) SendOrder(req *model.OrderRequest) (string, error) {
	rest, _, err := g.connectors()
	if err != nil {
		return "", err
	}
	return rest.SendOrder(context.Background(), req), nil
}

// CancelOrder ignores ids the gateway has never seen.
func (g *Gateway) CancelOrder(req *model.CancelRequest) {
	rest, _, err := g.connectors()
	if err != nil {
		g.logger.Warn(context.Background(), "cancel while not connected", zap.String("order_id", req.OrderID))
		return
	}
	rest.CancelOrder(context.Background(), req)
}

// query runs fn in the background; Close waits for it.
func (g *Gateway) query(fn func(ctx context.Context, rest *ftx.RestConnector)) {
	rest, _, err := g.connectors()
	if err != nil {
		g.logger.Debug(context.Background(), "query skipped", zap.Error(err))
		return
	}
	g.queries.Add(1)
	go func() {
		defer g.queries.Done()
		fn(context.Background(), rest)
	}()
}

func (g *Gateway) QueryAccount() {
	g.query(func(ctx context.Context, rest *ftx.RestConnector) { rest.QueryAccount(ctx) })
}

func (g *Gateway) QueryPosition() {
	g.query(func(ctx context.Context, rest *ftx.RestConnector) { rest.QueryPosition(ctx) })
}

func (g *Gateway) QueryOrders() {
	g.query(func(ctx context.Context, rest *ftx.RestConnector) { rest.QueryOpenOrders(ctx) })
}

func (g *Gateway) QueryContracts() {
	g.query(func(ctx context.Context, rest *ftx.RestConnector) { rest.QueryContracts(ctx) })
}

// QueryHistory blocks until the candles are downloaded.
func (g *Gateway) QueryHistory(ctx context.Context, req *model.HistoryRequest) ([]model.Bar, error) {
	rest, _, err := g.connectors()
	if err != nil {
		return nil, err
	}
	return rest.QueryHistory(ctx, req)
}

func (g *Gateway) GetOrder(orderID string) (model.Order, bool) {
	return g.state.Orders.Get(orderID)
}

func (g *Gateway) GetContract(symbol string) (model.Contract, bool) {
	return g.state.Symbols.Get(symbol)
}

func (g *Gateway) Accounts() []model.Account {
	return g.state.Snapshots.Accounts()
}

func (g *Gateway) Positions() []model.Position {
	return g.state.Snapshots.Positions()
}

func (g *Gateway) StreamState() ftx.StreamState {
	_, stream, err := g.connectors()
	if err != nil {
		return ftx.StateDisconnected
	}
	return stream.State()
}

// WriteLog forwards a host message onto the log channel.
func (g *Gateway) WriteLog(msg string) {
	g.writeLog(msg)
}

// Close stops the heartbeat and websocket and clears the caches. In-flight
// REST calls are allowed to finish first.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	rest, stream, ws, heartbeat, cancel := g.rest, g.stream, g.ws, g.heartbeat, g.cancel
	g.mu.Unlock()

	if heartbeat != nil {
		heartbeat.Stop()
	}
	if ws != nil {
		ws.Close()
	}
	g.queries.Wait()
	if rest != nil {
		rest.Wait()
	}
	if cancel != nil {
		cancel()
	}
	if stream != nil {
		stream.Reset()
	}
	g.state.Reset()
	g.logger.Info(context.Background(), "gateway closed")
}

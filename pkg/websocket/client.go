package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/joripage/ftx-gateway/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotConnected = errors.New("websocket not connected")

// Handler receives connection lifecycle events and inbound frames. All calls
// come from the client's single read goroutine.
type Handler interface {
	OnConnecting()
	OnConnected()
	OnDisconnected()
	OnPacket(data []byte)
}

type Config struct {
	URL                  string
	ProxyHost            string
	ProxyPort            int
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration
	ReconnectMaxInterval time.Duration
}

// Client keeps one websocket connection alive, redialling with exponential
// backoff until Close is called.
type Client struct {
	cfg     Config
	handler Handler
	dialer  *websocket.Dialer
	logger  *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(cfg Config, handler Handler, logger *zap.Logger) *Client {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.ReconnectMaxInterval <= 0 {
		cfg.ReconnectMaxInterval = 30 * time.Second
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	if cfg.ProxyHost != "" && cfg.ProxyPort > 0 {
		dialer.Proxy = http.ProxyURL(&url.URL{
			Scheme: "http",
			Host:   fmt.Sprintf("%s:%d", cfg.ProxyHost, cfg.ProxyPort),
		})
	}

	return &Client{
		cfg:     cfg,
		handler: handler,
		dialer:  dialer,
		logger:  logger.With(zap.String("component", "websocket"), zap.String("url", cfg.URL)),
		done:    make(chan struct{}),
	}
}

// Start runs the connect/read loop in the background.
func (c *Client) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	for ctx.Err() == nil {
		c.handler.OnConnecting()

		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Info("stop dialling", zap.Error(err))
			return
		}

		c.setConn(conn)
		// Close may have run between dial and setConn and seen no conn.
		stop := context.AfterFunc(ctx, func() { conn.Close() })
		c.handler.OnConnected()
		c.readLoop(conn)
		stop()
		c.setConn(nil)
		conn.Close()
		c.handler.OnDisconnected()

		if ctx.Err() == nil {
			metrics.WSReconnects.Inc()
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	boff := backoff.NewExponentialBackOff()
	boff.MaxInterval = c.cfg.ReconnectMaxInterval
	boff.MaxElapsedTime = 0

	var conn *websocket.Conn
	err := backoff.RetryNotify(func() error {
		var err error
		conn, _, err = c.dialer.DialContext(ctx, c.cfg.URL, nil)
		return err
	}, backoff.WithContext(boff, ctx), func(err error, wait time.Duration) {
		c.logger.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", wait))
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Info("connection closed")
			} else {
				c.logger.Warn("read failed", zap.Error(err))
			}
			return
		}
		c.handler.OnPacket(data)
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// SendJSON writes v as one text frame. Writes are serialized.
func (c *Client) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close stops reconnecting, closes the live connection and waits for the
// read loop to exit.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.cancel()

		c.mu.Lock()
		if c.conn != nil {
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			c.conn.Close()
		}
		c.mu.Unlock()

		<-c.done
	})
}

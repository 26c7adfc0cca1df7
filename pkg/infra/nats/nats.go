package nats_wrapper

import (
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NatsConfig struct {
	URL                  string   `yaml:"url"`
	Stream               string   `yaml:"stream"`
	Subjects             []string `yaml:"subjects"`
	MaxReconnects        int      `yaml:"max_reconnects"`
	ReconnectWaitSeconds int      `yaml:"reconnect_wait_seconds"`
	MaxPendingAsync      int      `yaml:"max_pending_async"`
}

// InitNats connects and makes sure the event stream exists.
func InitNats(cfg *NatsConfig) (*nats.Conn, nats.JetStreamContext, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name("ftx-gateway"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			zap.S().Warnw("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			zap.S().Infow("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if cfg.ReconnectWaitSeconds > 0 {
		opts = append(opts, nats.ReconnectWait(time.Duration(cfg.ReconnectWaitSeconds)*time.Second))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, nil, err
	}

	maxPending := cfg.MaxPendingAsync
	if maxPending <= 0 {
		maxPending = 4096
	}
	js, err := nc.JetStream(nats.PublishAsyncMaxPending(maxPending))
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	if cfg.Stream != "" {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     cfg.Stream,
			Subjects: cfg.Subjects,
		})
		if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			nc.Close()
			return nil, nil, err
		}
	}

	zap.S().Debugw("connect to nats successful", "url", url, "stream", cfg.Stream)
	return nc, js, nil
}

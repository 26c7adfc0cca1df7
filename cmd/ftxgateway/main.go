package main

import (
	"context"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/joripage/ftx-gateway/config"
	"github.com/joripage/ftx-gateway/pkg/bus"
	"github.com/joripage/ftx-gateway/pkg/fixgateway"
	"github.com/joripage/ftx-gateway/pkg/ftx"
	"github.com/joripage/ftx-gateway/pkg/gateway"
	nats_wrapper "github.com/joripage/ftx-gateway/pkg/infra/nats"
	redis_wrapper "github.com/joripage/ftx-gateway/pkg/infra/redis"
	kafkawrapper "github.com/joripage/ftx-gateway/pkg/kafka_wrapper"
	"github.com/joripage/ftx-gateway/pkg/logging"
	"github.com/joripage/ftx-gateway/pkg/metrics"
	"github.com/joripage/ftx-gateway/pkg/model"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel)).With(zap.String("service", cfg.ServiceName))
	defer logger.Sync()
	zap.ReplaceGlobals(logger.Zap())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.InitMetrics()
	if cfg.AdminAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.AdminAddr, nil); err != nil && err != http.ErrServerClosed {
				logger.Error(ctx, "admin server stopped", zap.Error(err))
			}
		}()
	}

	loc, err := ftx.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal(ctx, "load timezone failed", zap.Error(err))
	}

	remote, err := newRemote(ctx, cfg, logger.Zap())
	if err != nil {
		logger.Fatal(ctx, "init bus failed", zap.String("bus", cfg.Bus.Kind), zap.Error(err))
	}

	var gw *gateway.Gateway
	wanted := make(map[string]bool, len(cfg.Ftx.Symbols))
	for _, s := range cfg.Ftx.Symbols {
		wanted[s] = true
	}
	local := &bus.Callbacks{
		Contract: func(c *model.Contract) {
			if !wanted[c.Symbol] {
				return
			}
			if err := gw.Subscribe(model.SubscribeRequest{Symbol: c.Symbol, Exchange: c.Exchange}); err != nil {
				logger.Warn(ctx, "subscribe failed", zap.String("symbol", c.Symbol), zap.Error(err))
			}
		},
		Log: func(msg string) {
			logger.Info(ctx, "gateway log", zap.String("msg", msg))
		},
	}

	publishers := bus.Multi{local}
	if remote != nil {
		publishers = append(publishers, remote)
	}

	var fixGateway *fixgateway.FixGateway
	if cfg.Fix.Enabled {
		fixGateway = fixgateway.NewFixGateway(&fixgateway.FixGatewayConfig{
			ConfigFilepath:   cfg.Fix.ConfigFilepath,
			EnableShardQueue: true,
		}, logger.Zap())
		publishers = append(publishers, fixGateway)
	}

	gw = gateway.New(publishers, logger, gateway.Options{
		RestHost:           cfg.Ftx.RestHost,
		WebsocketHost:      cfg.Ftx.WebsocketHost,
		Location:           loc,
		HeartbeatInterval:  time.Duration(cfg.Ftx.HeartbeatIntervalSeconds) * time.Second,
		HeartbeatThreshold: cfg.Ftx.HeartbeatThreshold,
	})

	err = gw.Connect(ctx, gateway.Settings{
		Key:       cfg.Ftx.Key,
		Secret:    cfg.Ftx.Secret,
		ProxyHost: cfg.Ftx.ProxyHost,
		ProxyPort: cfg.Ftx.ProxyPort,
	})
	if err != nil {
		logger.Fatal(ctx, "connect failed", zap.Error(err))
	}

	if fixGateway != nil {
		fixGateway.AddGatewayInstance(gw)
		if err := fixGateway.Start(); err != nil {
			logger.Fatal(ctx, "start fix gateway failed", zap.Error(err))
		}
	}

	logger.Info(ctx, "gateway started", zap.String("bus", cfg.Bus.Kind), zap.Strings("symbols", cfg.Ftx.Symbols))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info(ctx, "shutting down")

	if fixGateway != nil {
		fixGateway.Stop()
	}
	gw.Close()
	if remote != nil {
		if err := remote.Close(); err != nil {
			logger.Warn(ctx, "close bus failed", zap.Error(err))
		}
	}
	logger.Info(ctx, "exited cleanly")
}

// newRemote returns nil for the in-memory bus.
func newRemote(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*bus.Remote, error) {
	var sink bus.Sink
	switch cfg.Bus.Kind {
	case config.BusKafka:
		sink = bus.NewKafkaSink(kafkawrapper.NewProducer(cfg.Kafka))
	case config.BusNats:
		nc, js, err := nats_wrapper.InitNats(cfg.Nats)
		if err != nil {
			return nil, err
		}
		sink = bus.NewNatsSink(nc, js)
	case config.BusRedis:
		client, err := redis_wrapper.InitRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		sink = bus.NewRedisSink(client)
	default:
		return nil, nil
	}
	return bus.NewRemote(sink, gateway.DefaultName, cfg.Bus.TopicPrefix, logger), nil
}

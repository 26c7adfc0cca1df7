package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/joripage/ftx-gateway/config"
	"github.com/joripage/ftx-gateway/pkg/bus"
	nats_wrapper "github.com/joripage/ftx-gateway/pkg/infra/nats"
	redis_wrapper "github.com/joripage/ftx-gateway/pkg/infra/redis"
	kafkawrapper "github.com/joripage/ftx-gateway/pkg/kafka_wrapper"
	"github.com/joripage/ftx-gateway/pkg/logging"
)

// bustail prints the events a running gateway publishes to its remote bus.
func main() {
	var (
		configFile string
		group      string
	)
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&group, "group", "ftx-bustail", "kafka consumer group or nats durable name")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	show := func(subject string, payload []byte) {
		ev, err := bus.DecodeEvent(payload)
		if err != nil {
			logger.Warn(ctx, "undecodable event", zap.String("subject", subject), zap.Error(err))
			return
		}
		logger.Info(ctx, string(ev.Kind),
			zap.String("subject", subject),
			zap.String("gateway", ev.Gateway),
			zap.Time("timestamp", ev.Timestamp),
			zap.ByteString("data", ev.Data))
	}

	switch cfg.Bus.Kind {
	case config.BusKafka:
		if cfg.Kafka == nil {
			logger.Fatal(ctx, "kafka section is required")
		}
		err = tailKafka(ctx, cfg, group, show)
	case config.BusNats:
		if cfg.Nats == nil {
			logger.Fatal(ctx, "nats section is required")
		}
		err = tailNats(ctx, cfg, group, logger, show)
	case config.BusRedis:
		if cfg.Redis == nil {
			logger.Fatal(ctx, "redis section is required")
		}
		err = tailRedis(ctx, cfg, show)
	default:
		logger.Fatal(ctx, "bus has nothing to tail", zap.String("bus", cfg.Bus.Kind))
	}
	if err != nil {
		logger.Fatal(ctx, "tail failed", zap.String("bus", cfg.Bus.Kind), zap.Error(err))
	}
}

func subjects(prefix string) []string {
	out := make([]string, 0, len(bus.Kinds))
	for _, kind := range bus.Kinds {
		out = append(out, bus.Subject(prefix, kind))
	}
	return out
}

func tailKafka(ctx context.Context, cfg *config.AppConfig, group string, show func(string, []byte)) error {
	cg, err := kafkawrapper.NewConsumerGroup(kafkawrapper.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: group,
		Topics:  subjects(cfg.Bus.TopicPrefix),
	})
	if err != nil {
		return err
	}
	defer cg.Close()

	return cg.Run(ctx, func(_ context.Context, m kafkawrapper.Message) error {
		show(m.Topic, m.Value)
		return nil
	})
}

func tailNats(ctx context.Context, cfg *config.AppConfig, durable string, logger *logging.Logger, show func(string, []byte)) error {
	nc, js, err := nats_wrapper.InitNats(cfg.Nats)
	if err != nil {
		return err
	}
	defer nc.Close()

	sub, err := js.PullSubscribe(bus.Subject(cfg.Bus.TopicPrefix, ">"), durable)
	if err != nil {
		return err
	}

	for ctx.Err() == nil {
		msgs, err := sub.Fetch(10, nats.MaxWait(time.Second))
		if err != nil {
			if !errors.Is(err, nats.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
				logger.Warn(ctx, "fetch failed", zap.Error(err))
			}
			continue
		}
		for _, msg := range msgs {
			show(msg.Subject, msg.Data)
			_ = msg.Ack()
		}
	}
	return nil
}

func tailRedis(ctx context.Context, cfg *config.AppConfig, show func(string, []byte)) error {
	client, err := redis_wrapper.InitRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer client.Close()

	pubsub := client.Subscribe(ctx, subjects(cfg.Bus.TopicPrefix)...)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			show(msg.Channel, []byte(msg.Payload))
		}
	}
}

package kafkawrapper

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
	Headers   map[string]string
}

type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	Topics     []string
	MaxRetries uint64
}

// ConsumerGroup reads one or more topics and commits each message once the
// handler accepts it or retries are exhausted.
type ConsumerGroup struct {
	r   *kafka.Reader
	cfg ConsumerConfig
}

func NewConsumerGroup(cfg ConsumerConfig) (*ConsumerGroup, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New("kafka group id is required")
	}

	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		StartOffset: kafka.LastOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})
	return &ConsumerGroup{r: rd, cfg: cfg}, nil
}

func (cg *ConsumerGroup) Close() error {
	if cg == nil || cg.r == nil {
		return nil
	}
	return cg.r.Close()
}

// Run blocks until ctx is cancelled.
func (cg *ConsumerGroup) Run(ctx context.Context, handler func(context.Context, Message) error) error {
	for {
		m, err := cg.r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			zap.S().Warnw("kafka fetch failed", "error", err)
			continue
		}

		msg := wrapMessage(m)
		boff := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cg.cfg.MaxRetries)
		if err := backoff.Retry(func() error { return handler(ctx, msg) }, backoff.WithContext(boff, ctx)); err != nil {
			zap.S().Errorw("kafka handler gave up", "topic", m.Topic, "offset", m.Offset, "error", err)
		}
		if err := cg.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			zap.S().Warnw("kafka commit failed", "topic", m.Topic, "offset", m.Offset, "error", err)
		}
	}
}

func wrapMessage(m kafka.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Time:      m.Time,
		Headers:   headers,
	}
}

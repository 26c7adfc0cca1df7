package kafkawrapper

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	kafka "github.com/segmentio/kafka-go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrProducerNotInitialized = errors.New("producer not initialized")

type ProducerConfig struct {
	Brokers             []string `yaml:"brokers"`
	BatchSize           int      `yaml:"batch_size"`
	BatchBytes          int64    `yaml:"batch_bytes"`
	BatchTimeoutMillis  int      `yaml:"batch_timeout_millis"`
	RequireAcks         bool     `yaml:"require_acks"`
	Async               bool     `yaml:"async"`
	AllowTopicCreation  bool     `yaml:"allow_topic_creation"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
}

type Producer struct {
	w *kafka.Writer
}

// NewProducer builds a hash-balanced writer so every event for one key
// (symbol or order id) lands on the same partition.
func NewProducer(cfg *ProducerConfig) *Producer {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchBytes == 0 {
		cfg.BatchBytes = 1 << 20
	}
	if cfg.BatchTimeoutMillis == 0 {
		cfg.BatchTimeoutMillis = 50
	}
	if cfg.WriteTimeoutSeconds == 0 {
		cfg.WriteTimeoutSeconds = 10
	}
	acks := kafka.RequireNone
	if cfg.RequireAcks {
		acks = kafka.RequireOne
	}

	wr := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchBytes:             cfg.BatchBytes,
		BatchTimeout:           time.Duration(cfg.BatchTimeoutMillis) * time.Millisecond,
		WriteTimeout:           time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		AllowAutoTopicCreation: cfg.AllowTopicCreation,
		RequiredAcks:           acks,
		Async:                  cfg.Async,
	}
	return &Producer{w: wr}
}

func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error {
	if p == nil || p.w == nil {
		return ErrProducerNotInitialized
	}
	var kh []kafka.Header
	for k, v := range headers {
		kh = append(kh, kafka.Header{Key: k, Value: []byte(v)})
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: kh,
		Time:    time.Now(),
	})
}

func (p *Producer) PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, []byte(key), b, headers)
}

func (p *Producer) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}

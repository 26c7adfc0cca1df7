package bus

import (
	"context"

	kafkawrapper "github.com/joripage/ftx-gateway/pkg/kafka_wrapper"
)

// KafkaSink writes to one topic per event kind, keyed by symbol or order id.
type KafkaSink struct {
	producer *kafkawrapper.Producer
}

func NewKafkaSink(producer *kafkawrapper.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Name() string {
	return "kafka"
}

func (s *KafkaSink) Send(ctx context.Context, subject, key string, payload []byte) error {
	return s.producer.Publish(ctx, subject, []byte(key), payload, map[string]string{
		"content-type": "application/json",
	})
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}

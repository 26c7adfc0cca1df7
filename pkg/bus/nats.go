package bus

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsSink publishes to JetStream without waiting for acks.
type NatsSink struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

func NewNatsSink(nc *nats.Conn, js nats.JetStreamContext) *NatsSink {
	return &NatsSink{nc: nc, js: js}
}

func (s *NatsSink) Name() string {
	return "nats"
}

func (s *NatsSink) Send(_ context.Context, subject, key string, payload []byte) error {
	msg := nats.NewMsg(subject)
	msg.Header.Set("key", key)
	msg.Data = payload
	_, err := s.js.PublishMsgAsync(msg)
	return err
}

func (s *NatsSink) Close() error {
	select {
	case <-s.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
	}
	return s.nc.Drain()
}

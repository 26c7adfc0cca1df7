package bus

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes on pub/sub channels named after the event kind.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Name() string {
	return "redis"
}

func (s *RedisSink) Send(ctx context.Context, subject, _ string, payload []byte) error {
	return s.client.Publish(ctx, subject, payload).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

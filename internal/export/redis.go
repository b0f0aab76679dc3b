package export

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends records to Redis Streams, one stream per topic.
// Consumers read with XREAD/XREADGROUP at their own pace.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(addr, password string, db int) *RedisPublisher {
	return &RedisPublisher{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd to %s: %w", topic, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

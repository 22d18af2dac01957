package pubsub

import (
	"context"
	"time"
)

// Bus 快照事件总线：发布、订阅、缓存最近一次快照
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
	Cache(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Cached(ctx context.Context, key string) ([]byte, error)
	Close() error
}

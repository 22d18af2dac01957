package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNotCached 缓存中没有对应的快照
var ErrNotCached = errors.New("快照未缓存")

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// RedisBus 基于Redis发布订阅的快照总线
type RedisBus struct {
	client *redis.Client
	prefix string
}

// NewRedisBus 创建Redis总线实例
func NewRedisBus(config *Config) *RedisBus {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "sportshub:snapshot"
	}

	return &RedisBus{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (b *RedisBus) Close() error {
	return b.client.Close()
}

// Ping 测试Redis连接
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Publish 发布消息到指定频道
func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, b.channelKey(channel), payload).Err(); err != nil {
		return fmt.Errorf("发布消息失败: %v", err)
	}
	return nil
}

// Subscribe 订阅指定频道，返回的函数用于取消订阅
func (b *RedisBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ps := b.client.Subscribe(ctx, b.channelKey(channel))

	// 等待订阅成功
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("订阅频道失败: %v", err)
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { ps.Close() }, nil
}

// Cache 缓存最近一次快照
func (b *RedisBus) Cache(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := b.client.Set(ctx, b.cacheKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("缓存快照失败: %v", err)
	}
	return nil
}

// Cached 读取缓存的快照
func (b *RedisBus) Cached(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotCached
	}
	return data, err
}

func (b *RedisBus) channelKey(channel string) string {
	return fmt.Sprintf("%s:channel:%s", b.prefix, channel)
}

func (b *RedisBus) cacheKey(key string) string {
	return fmt.Sprintf("%s:latest:%s", b.prefix, key)
}

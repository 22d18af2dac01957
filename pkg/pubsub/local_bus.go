package pubsub

import (
	"context"
	"sync"
	"time"
)

// LocalBus 进程内总线，Redis关闭时使用
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[string]map[chan []byte]struct{}
	latest map[string][]byte
}

func NewLocalBus() *LocalBus {
	return &LocalBus{
		subs:   make(map[string]map[chan []byte]struct{}),
		latest: make(map[string][]byte),
	}
}

func (b *LocalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[channel] {
		// 慢订阅者直接丢弃，下次快照会覆盖
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(_ context.Context, channel string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 16)

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan []byte]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[channel], ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Cache 进程内缓存不设过期
func (b *LocalBus) Cache(_ context.Context, key string, payload []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest[key] = payload
	return nil
}

func (b *LocalBus) Cached(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.latest[key]
	if !ok {
		return nil, ErrNotCached
	}
	return data, nil
}

func (b *LocalBus) Close() error {
	return nil
}

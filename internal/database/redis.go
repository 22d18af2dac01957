package database

import (
	"context"
	"sync"
	"time"

	"sportshub/pkg/config"
	"sportshub/pkg/logger"
	"sportshub/pkg/pubsub"
)

var (
	busInstance pubsub.Bus
	busOnce     sync.Once
)

// GetBus 获取快照总线的单例实例
// Redis 关闭或连接失败时退回进程内总线，快照只在本进程内推送
func GetBus(cfg *config.Config) pubsub.Bus {
	busOnce.Do(func() {
		if !cfg.Redis.Enabled {
			logger.GetLogger().Info("Redis disabled, using in-process snapshot bus")
			busInstance = pubsub.NewLocalBus()
			return
		}

		bus := pubsub.NewRedisBus(&pubsub.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := bus.Ping(ctx); err != nil {
			logger.GetLogger().WithError(err).Warn("Redis unavailable, falling back to in-process snapshot bus")
			bus.Close()
			busInstance = pubsub.NewLocalBus()
			return
		}
		busInstance = bus
	})
	return busInstance
}

// CloseBus 关闭总线连接
func CloseBus() error {
	if busInstance != nil {
		return busInstance.Close()
	}
	return nil
}

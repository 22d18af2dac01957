package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"sportshub/pkg/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Logger       *logrus.Logger
	fallbackOnce sync.Once
)

// Initialize 初始化日志
func Initialize(cfg *config.Config) error {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if cfg.Log.FilePath != "" {
		logDir := filepath.Dir(cfg.Log.FilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return err
		}

		// 配置日志轮转
		rotateLogger := &lumberjack.Logger{
			Filename:   cfg.Log.FilePath,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		}

		// 同时输出到文件和控制台
		l.SetOutput(io.MultiWriter(os.Stdout, rotateLogger))
	}

	Logger = l
	return nil
}

// GetLogger 获取日志实例；未初始化时（如单元测试）返回输出到stderr的默认实例
func GetLogger() *logrus.Logger {
	if Logger == nil {
		fallbackOnce.Do(func() {
			if Logger == nil {
				Logger = logrus.New()
				Logger.SetOutput(os.Stderr)
			}
		})
	}
	return Logger
}

// ForTenant 带租户字段的日志条目
func ForTenant(tenantID string) *logrus.Entry {
	return GetLogger().WithField("tenant_id", tenantID)
}

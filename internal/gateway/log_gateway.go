package gateway

import (
	"context"

	"sportshub/pkg/logger"

	"github.com/sirupsen/logrus"
)

// LogGateway 只记录日志不真正发送，开发环境使用
type LogGateway struct{}

func NewLogGateway() *LogGateway {
	return &LogGateway{}
}

func (g *LogGateway) Send(_ context.Context, phone, instanceID, text string) error {
	logger.GetLogger().WithFields(logrus.Fields{
		"phone":    phone,
		"instance": instanceID,
		"length":   len(text),
	}).Info("消息网关(日志模式)发送消息")
	return nil
}

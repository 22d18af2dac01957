package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sportshub/internal/database"
	"sportshub/internal/gateway"
	"sportshub/internal/router"
	"sportshub/internal/services"
	"sportshub/internal/store"
	"sportshub/pkg/config"
	"sportshub/pkg/jwt"
	"sportshub/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting SportsHub...")

	// 存储
	st, err := openStore(cfg)
	if err != nil {
		appLogger.Fatalf("Failed to initialize store: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		if err := database.CloseBus(); err != nil {
			appLogger.Error("Failed to close snapshot bus:", err)
		}
	}()

	// 种子数据
	seed, err := loadSeedFile(cfg.Seed.TemplatesFile)
	if err != nil {
		appLogger.Fatalf("Failed to load seed file: %v", err)
	}
	if err := seedData(context.Background(), st, cfg, seed); err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	jwtManager := jwt.GetJWTManager()

	bus := database.GetBus(cfg)
	syncService := services.NewSyncService(st, bus, services.NewSnapshotRegistry())

	notificationService := services.NewNotificationService(st, openGateway(cfg))
	syncService.SetReminderScheduler(services.NewReminderScheduler(st, notificationService))

	deps := &router.Dependencies{
		Config:       cfg,
		JWT:          jwtManager,
		Bus:          bus,
		Sync:         syncService,
		Users:        services.NewUserService(st, jwtManager),
		Tenants:      services.NewTenantService(st, syncService, seed.Templates),
		Members:      services.NewMemberService(st, syncService),
		Leads:        services.NewLeadService(st, syncService),
		Transactions: services.NewTransactionService(st, syncService),
		Billing:      services.NewBillingService(st, syncService, cfg.Billing.DefaultDueDay),
		Notify:       services.NewNotificationIntentService(st, syncService, notificationService),
		Settings:     services.NewConfigService(st, syncService),
	}

	// 启动体验课提醒调度器
	if cfg.Scheduler.Enabled {
		reminderCron := services.NewReminderCron(syncService, cfg.Scheduler.ReminderCron)
		if err := reminderCron.Start(); err != nil {
			appLogger.Errorf("Failed to start reminder scheduler: %v", err)
			// 不影响主服务启动
		}
		defer reminderCron.Stop()
	}

	// 设置路由（在所有调度器初始化后）
	r := router.SetupRouter(deps)

	// websocket 长连接不设置写超时
	server := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
	}

	// 启动服务
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}

// openStore 按配置选择存储驱动
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver == "memory" {
		logger.GetLogger().Warn("Using in-memory store, data will be lost on restart")
		return store.NewMemoryStore(), nil
	}

	if err := database.Initialize(cfg); err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		return nil, err
	}
	return store.NewGormStore(database.GetDB()), nil
}

// openGateway 按配置选择消息网关
func openGateway(cfg *config.Config) gateway.Gateway {
	if cfg.Messaging.Provider == "http" {
		return gateway.NewHTTPGateway(
			cfg.Messaging.BaseURL,
			cfg.Messaging.APIKey,
			time.Duration(cfg.Messaging.TimeoutSeconds)*time.Second,
		)
	}
	logger.GetLogger().Info("Messaging provider is log, notifications will only be logged")
	return gateway.NewLogGateway()
}

package router

import (
	"time"

	"sportshub/internal/handlers"
	"sportshub/internal/middleware"
	"sportshub/internal/services"
	"sportshub/pkg/config"
	"sportshub/pkg/jwt"
	"sportshub/pkg/pubsub"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies 路由需要的服务
type Dependencies struct {
	Config       *config.Config
	JWT          *jwt.JWTManager
	Bus          pubsub.Bus
	Sync         *services.SyncService
	Users        *services.UserService
	Tenants      *services.TenantService
	Members      *services.MemberService
	Leads        *services.LeadService
	Transactions *services.TransactionService
	Billing      *services.BillingService
	Notify       *services.NotificationIntentService
	Settings     *services.ConfigService
}

// SetupRouter 设置路由
func SetupRouter(deps *Dependencies) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	if deps.Config.Metrics.Enabled {
		router.GET(deps.Config.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	registerRoutes(router, deps)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, deps *Dependencies) {
	auth := middleware.NewAuthMiddleware(deps.Users, deps.JWT)

	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		authHandler := handlers.NewAuthHandler(deps.Users, deps.Sync, deps.JWT)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.RefreshToken)
			authGroup.POST("/logout", auth.RequireLogin(), authHandler.Logout)
			authGroup.GET("/me", auth.RequireLogin(), authHandler.Me)

			// 租户代入（仅平台管理员）
			authGroup.POST("/switch-tenant", auth.RequireLogin(), auth.RequirePlatformAdmin(), authHandler.SwitchTenant)
			authGroup.POST("/exit-tenant", auth.RequireLogin(), auth.RequirePlatformAdmin(), authHandler.ExitTenant)
		}

		// 快照
		snapshotHandler := handlers.NewSnapshotHandler(deps.Sync)
		api.GET("/snapshot", auth.RequireLogin(), snapshotHandler.Get)

		wsHandler := handlers.NewWebSocketHandler(deps.Bus, deps.Sync, deps.Config.CORS.AllowOrigins)
		api.GET("/ws/snapshot", auth.RequireLogin(), wsHandler.SnapshotStream)

		// 以下为租户范围的意图，需要已解析出生效租户
		scoped := api.Group("", auth.RequireLogin(), auth.RequireActiveTenant())

		memberHandler := handlers.NewMemberHandler(deps.Members)
		members := scoped.Group("/members")
		{
			members.POST("", memberHandler.Create)
			members.PUT("/:id", memberHandler.Update)
			members.DELETE("/:id", memberHandler.Delete)
		}

		leadHandler := handlers.NewLeadHandler(deps.Leads)
		leads := scoped.Group("/leads")
		{
			leads.POST("", leadHandler.Create)
			leads.PUT("/:id", leadHandler.Update)
			leads.POST("/:id/advance", leadHandler.Advance)
			leads.DELETE("/:id", leadHandler.Delete)
		}

		transactionHandler := handlers.NewTransactionHandler(deps.Transactions)
		transactions := scoped.Group("/transactions")
		{
			transactions.POST("", transactionHandler.Create)
			transactions.PUT("/:id", transactionHandler.Update)
			transactions.POST("/:id/pay", transactionHandler.Pay)
			transactions.DELETE("/:id", transactionHandler.Delete)
		}

		billingHandler := handlers.NewBillingHandler(deps.Billing)
		scoped.POST("/billing/generate", billingHandler.Generate)

		notificationHandler := handlers.NewNotificationHandler(deps.Notify)
		scoped.POST("/notifications/dispatch", notificationHandler.Dispatch)

		configHandler := handlers.NewConfigHandler(deps.Settings)
		settings := scoped.Group("/settings")
		{
			settings.PUT("/config", configHandler.UpdateConfig)
			settings.PUT("/templates", configHandler.UpsertTemplate)
			settings.PUT("/profile", configHandler.UpdateProfile)
		}

		// 平台管理员
		admin := api.Group("/admin", auth.RequireLogin(), auth.RequirePlatformAdmin())

		tenantHandler := handlers.NewTenantHandler(deps.Tenants)
		tenants := admin.Group("/tenants")
		{
			tenants.GET("", tenantHandler.GetAll)
			tenants.GET("/stats", tenantHandler.GetStats)
			tenants.POST("", tenantHandler.Create)
			tenants.PUT("/:id", tenantHandler.Update)
			tenants.PUT("/:id/plan", tenantHandler.AssignPlan)
			tenants.POST("/:id/activate", tenantHandler.Activate)
			tenants.POST("/:id/deactivate", tenantHandler.Deactivate)
			tenants.DELETE("/:id", tenantHandler.Delete)
		}
		admin.GET("/plans", tenantHandler.ListPlans)
		admin.PUT("/feature-flags/:key", configHandler.SetFeatureFlag)

		userHandler := handlers.NewUserHandler(deps.Users)
		users := admin.Group("/users")
		{
			users.GET("", userHandler.GetAll)
			users.POST("", userHandler.Create)
			users.GET("/:id", userHandler.GetByID)
		}
	}
}

func healthCheck(c *gin.Context) {
	response.Success(c, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "sportshub",
	})
}

func ping(c *gin.Context) {
	response.Success(c, gin.H{
		"message": "pong",
	})
}

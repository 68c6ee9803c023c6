package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"snapmail/backend/internal/config"
	"snapmail/backend/internal/health"
	"snapmail/backend/internal/middleware"
	"snapmail/backend/internal/monitoring"
	"snapmail/backend/internal/service"
	"snapmail/backend/internal/storage"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config          *config.Config
	MailboxService  *service.MailboxService
	MessageService  *service.MessageService
	DeliveryService *service.DeliveryService
	Store           storage.Store
	Metrics         *monitoring.Metrics
	HealthChecker   *health.Checker
	Logger          *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(deps.Config.Mailbox.MaxBodySize))
	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{
			"Content-Length",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 允许所有来源时必须关掉凭证支持
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	mailboxHandler := NewMailboxHandler(deps.MailboxService, deps.MessageService, deps.DeliveryService, deps.Metrics)
	messageHandler := NewMessageHandler(deps.MessageService, deps.Metrics)
	webhookHandler := NewWebhookHandler(deps.DeliveryService, deps.Metrics, deps.Logger)

	rateLimiter := middleware.NewRateLimiter(deps.Store, deps.Metrics, deps.Logger)
	createLimit := rateLimiter.Limit("create", deps.Config.RateLimit.CreateLimit, deps.Config.RateLimit.CreateWindow)
	generalLimit := rateLimiter.Limit("general", deps.Config.RateLimit.GeneralLimit, deps.Config.RateLimit.GeneralWindow)

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// 存活/就绪探针
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapH(deps.HealthChecker.Handler()))
		router.GET("/health/ready", gin.WrapH(deps.HealthChecker.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			status := "ok"
			code := http.StatusOK
			if deps.HealthChecker != nil {
				var healthy bool
				status, healthy = deps.HealthChecker.Status()
				if !healthy {
					code = http.StatusServiceUnavailable
				}
			}
			c.JSON(code, gin.H{
				"status":    status,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		})

		mailbox := api.Group("/mailbox")
		{
			mailbox.POST("/create", createLimit, mailboxHandler.Create)
			mailbox.GET("/:email", generalLimit, mailboxHandler.Get)
			mailbox.GET("/:email/emails", generalLimit, mailboxHandler.ListMessages)
			mailbox.POST("/:email/refresh", generalLimit, mailboxHandler.Refresh)
			mailbox.DELETE("/:email", generalLimit, mailboxHandler.Delete)
			mailbox.POST("/:email/generate-email", generalLimit, mailboxHandler.GenerateTestEmail)
		}

		api.GET("/email/:id", generalLimit, messageHandler.Get)

		// webhook 不限流：削掉服务商的投递不是限流的职责
		api.POST("/webhook/:provider", webhookHandler.Receive)
	}

	router.NoRoute(func(c *gin.Context) {
		NotFound(c, "not found")
	})

	return router
}

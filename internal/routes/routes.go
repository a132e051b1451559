package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rankreport/rankreport-backend/internal/config"
	"github.com/rankreport/rankreport-backend/internal/handler"
	"github.com/rankreport/rankreport-backend/internal/middleware"
	"github.com/rankreport/rankreport-backend/pkg/jwt"
	"github.com/redis/go-redis/v9"
)

// Handlers groups every HTTP handler mounted by Setup
type Handlers struct {
	Report  *handler.ReportHandler
	Billing *handler.BillingHandler
	Client  *handler.ClientHandler
	Cron    *handler.CronHandler
	Health  *handler.HealthHandler
}

// Setup configures all API routes
func Setup(router *gin.Engine, h Handlers, jwtManager *jwt.Manager, redisClient *redis.Client, cfg *config.Config) {
	router.GET("/health", h.Health.Health)
	router.GET("/metrics", middleware.MetricsHandler())

	api := router.Group("/api/v1", middleware.JWTAuth(jwtManager))

	// Billing
	billing := api.Group("/billing")
	billing.GET("/cycle", h.Billing.GetCycle)
	billing.GET("/usage", h.Billing.GetUsage)
	billing.GET("/plans", h.Billing.GetPlans)
	billing.POST("/trial", h.Billing.StartTrial)
	billing.POST("/cancel", h.Billing.Cancel)

	// Clients
	clients := api.Group("/clients")
	clients.GET("", h.Client.ListClients)
	clients.POST("", h.Client.CreateClient)
	clients.GET("/:id", h.Client.GetClient)
	clients.DELETE("/:id", h.Client.DeleteClient)

	// Reports (creation is rate limited per user on top of the plan quota)
	reports := api.Group("/reports")
	reports.GET("", h.Report.ListReports)
	reports.GET("/:id", h.Report.GetReport)
	reports.POST("",
		middleware.RateLimitPerUser(redisClient, "api:ratelimit:reports:", cfg.Billing.ReportCreatePerMin),
		h.Report.CreateReport,
	)

	// Scheduled jobs, for an external scheduler
	cron := router.Group("/api/cron", middleware.CronAuth(cfg.Cron.Secret))
	cron.POST("/process-cancellations", h.Cron.ProcessCancellations)
	cron.POST("/generate-reports", h.Cron.GenerateReports)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/config"
	"github.com/rankreport/rankreport-backend/internal/database"
	"github.com/rankreport/rankreport-backend/internal/handler"
	"github.com/rankreport/rankreport-backend/internal/middleware"
	"github.com/rankreport/rankreport-backend/internal/migration"
	"github.com/rankreport/rankreport-backend/internal/repository"
	"github.com/rankreport/rankreport-backend/internal/routes"
	"github.com/rankreport/rankreport-backend/internal/scheduler"
	"github.com/rankreport/rankreport-backend/internal/service"
	pkgcache "github.com/rankreport/rankreport-backend/pkg/cache"
	"github.com/rankreport/rankreport-backend/pkg/jwt"
	pkglogger "github.com/rankreport/rankreport-backend/pkg/logger"
	pkgredis "github.com/rankreport/rankreport-backend/pkg/redis"
	pkgstorage "github.com/rankreport/rankreport-backend/pkg/storage"
)

// @title           RankReport API
// @version         1.0
// @description     White-label SEO report backend: clients, reports, billing cycles and plan limits.
//
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Session JWT issued by the web app. Example: "Bearer {token}"

const generateBatchSize = 10

func main() {
	dotenvFiles := config.LoadDotEnv()

	pkglogger.Init()
	env := config.AppEnv()
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	configPath := config.ConfigPath()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)
	pkglogger.SetDebug(cfg.IsDevelopment())
	common.RegisterJSONFieldNames()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database is required: every route reads tenant state
	gormLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		gormLevel = gormlogger.Info
	}
	db, err := database.Open(cfg.Database, gormLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to %s", cfg.Database.Driver)
	if cfg.IsDevelopment() {
		if err := migration.Run(db); err != nil {
			pkglogger.Warn("Migration warning: %v", err)
		}
	}

	// Redis is optional: usage cache and rate limits degrade to no-ops
	var redisClient *goredis.Client
	redisClient, err = pkgredis.NewClient(ctx, pkgredis.Options{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		pkglogger.Warn("Redis unavailable: %v (continuing without Redis)", err)
		redisClient = nil
	} else {
		pkglogger.Info("Connected to Redis")
	}
	cacheService := pkgcache.NewService(redisClient)

	// S3-compatible storage for rendered reports
	var store service.ObjectStore
	if cfg.Storage.Enabled && cfg.Storage.Bucket != "" {
		s3Client, s3Err := pkgstorage.NewS3Client(pkgstorage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			CDNURL:          cfg.Storage.CDNURL,
			BasePath:        cfg.Storage.BasePath,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		})
		if s3Err != nil {
			pkglogger.Warn("S3 storage init failed: %v (continuing without S3)", s3Err)
		} else {
			store = s3Client
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Services
	batchDelay := time.Duration(cfg.Cron.BatchDelayMs) * time.Millisecond
	cycleService := service.NewBillingCycleService(userRepo, cfg.Billing.CycleDays)
	planService := service.NewPlanService(userRepo, cycleService, cacheService, cfg.Billing.TrialDays, batchDelay)
	usageService := service.NewUsageService(planService, cycleService, reportRepo, cacheService)
	reportService := service.NewReportService(planService, cycleService, reportRepo, clientRepo, cacheService, cfg.Billing.FreeWarningThreshold)
	clientService := service.NewClientService(planService, clientRepo, cacheService, store)

	generator := newReportGenerator(ctx, cfg, reportRepo, clientRepo, store)

	// Handlers
	h := routes.Handlers{
		Report:  handler.NewReportHandler(reportService),
		Billing: handler.NewBillingHandler(cycleService, usageService, planService),
		Client:  handler.NewClientHandler(clientService),
		Cron:    handler.NewCronHandler(planService, generator),
		Health:  handler.NewHealthHandler(db, cacheService),
	}

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.CORS.AllowOrigins)))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())
	if redisClient != nil && !cfg.IsDevelopment() {
		router.Use(middleware.RateLimit(redisClient, middleware.DefaultRateLimitConfig()))
	}

	routes.Setup(router, h, jwtManager, redisClient, cfg)

	poolStop := make(chan struct{})
	if sqlDB, err := db.DB(); err == nil {
		go middleware.ObserveDBPool(sqlDB, 15*time.Second, poolStop)
	}

	var jobs *scheduler.Scheduler
	if cfg.Cron.Enabled {
		jobs = newScheduler(cfg, planService, generator)
		jobs.Start(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		pkglogger.Info("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	pkglogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pkglogger.Error("Server forced to shutdown: %v", err)
	}
	if jobs != nil {
		jobs.Stop()
	}
	if err := generator.Close(); err != nil {
		pkglogger.Warn("Gemini client close: %v", err)
	}
	close(poolStop)
	closeResources(db, redisClient)
	pkglogger.Info("Server exited")
}

// newReportGenerator wires Google data sources, optional Gemini insights and storage
func newReportGenerator(
	ctx context.Context,
	cfg *config.Config,
	reportRepo repository.ReportRepository,
	clientRepo repository.ClientRepository,
	store service.ObjectStore,
) *service.ReportGenerator {
	if !cfg.Google.Enabled() {
		pkglogger.Warn("Google OAuth client not configured; queued reports will fail until it is")
	}
	tokens := service.NewGoogleTokenService(cfg.Google, clientRepo)
	source := service.NewGoogleMetricsSource(tokens)

	var insights service.InsightWriter
	if cfg.Gemini.APIKey != "" {
		writer, err := service.NewGeminiInsightWriter(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			pkglogger.Warn("Gemini init failed: %v (reports will have no insights)", err)
		} else {
			insights = writer
			pkglogger.Info("Gemini insights enabled (model=%s)", cfg.Gemini.Model)
		}
	}

	return service.NewReportGenerator(reportRepo, clientRepo, source, insights, store)
}

func newScheduler(cfg *config.Config, plans service.PlanService, generator *service.ReportGenerator) *scheduler.Scheduler {
	s := scheduler.New(15 * time.Second)

	reportEvery := time.Duration(cfg.Cron.ReportIntervalSec) * time.Second
	s.Register("generate-pending-reports", reportEvery, 5*time.Minute, true, func(ctx context.Context) error {
		_, err := generator.ProcessPending(ctx, generateBatchSize)
		return err
	})

	cancellationEvery := time.Duration(cfg.Cron.CancellationIntervalH) * time.Hour
	s.Register("process-cancellations", cancellationEvery, 30*time.Minute, false, func(ctx context.Context) error {
		result, err := plans.ProcessCancellations(ctx)
		if err != nil {
			return err
		}
		if result.Failed > 0 {
			return fmt.Errorf("%d of %d cancellations failed", result.Failed, result.Processed)
		}
		return nil
	})
	return s
}

func corsConfig(allowOrigins string) cors.Config {
	origins := splitAndTrim(allowOrigins, ",")
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining"},
		MaxAge:           12 * time.Hour,
	}
}

func splitAndTrim(s, sep string) []string {
	var parts []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

func closeResources(db *gorm.DB, redisClient *goredis.Client) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

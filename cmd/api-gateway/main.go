package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/confplan-api/api/swagger"
	"github.com/noah-isme/confplan-api/internal/handler"
	"github.com/noah-isme/confplan-api/internal/middleware"
	"github.com/noah-isme/confplan-api/internal/repository"
	"github.com/noah-isme/confplan-api/internal/service"
	"github.com/noah-isme/confplan-api/pkg/cache"
	"github.com/noah-isme/confplan-api/pkg/config"
	"github.com/noah-isme/confplan-api/pkg/database"
	"github.com/noah-isme/confplan-api/pkg/jobs"
	"github.com/noah-isme/confplan-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/confplan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/confplan-api/pkg/middleware/requestid"
	"github.com/noah-isme/confplan-api/pkg/storage"
)

// @title ConfPlan API
// @version 1.0.0
// @description Ballot-driven conference schedule planning
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	eventRepo := repository.NewEventRepository(db)
	ballotRepo := repository.NewBallotRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	slotRepo := repository.NewScheduleSlotRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	eventSvc := service.NewEventService(eventRepo, cacheRepo, validate, logr)
	plannerSvc := service.NewPlannerService(eventRepo, ballotRepo, scheduleRepo, slotRepo, db, metricsSvc, validate, logr, service.PlannerServiceConfig{
		ExactSearchLimit: cfg.Planner.ExactSearchLimit,
		ProposalTTL:      cfg.Planner.ProposalTTL,
	})

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	var ballotSvc *service.BallotService
	var exportSvc *service.ExportService

	queue := jobs.NewQueue("confplan-workers", func(ctx context.Context, job jobs.Job) error {
		switch job.Type {
		case service.JobTypeExportSchedule:
			return exportSvc.Process(ctx, job)
		case service.JobTypeWarmPopularity:
			return ballotSvc.WarmPopularity(ctx, job)
		default:
			logr.Sugar().Warnw("unknown job type", "type", job.Type)
			return nil
		}
	}, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})

	ballotSvc = service.NewBallotService(ballotRepo, eventRepo, cacheRepo, metricsSvc, queue, validate, logr, cfg.Planner.PopularityCacheTTL)
	exportSvc = service.NewExportService(exportJobRepo, scheduleRepo, slotRepo, store, signer, queue, metricsSvc, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()

	go cleanupLoop(ctx, store, cfg.Exports.SignedURLTTL, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	ballotHandler := handler.NewBallotHandler(ballotSvc)
	plannerHandler := handler.NewPlannerHandler(plannerSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	api.GET("/events", eventHandler.List)
	api.GET("/events/:id", eventHandler.Get)
	api.GET("/events/:id/ballots", ballotHandler.List)
	api.GET("/events/:id/popularity", ballotHandler.Popularity)
	api.POST("/events/:id/ballots", ballotHandler.Submit)
	api.GET("/schedules", plannerHandler.List)
	api.GET("/schedules/:id/slots", plannerHandler.Slots)
	api.GET("/exports/download", exportHandler.Download)

	protected := api.Group("", middleware.JWT(authSvc))
	protected.POST("/events", eventHandler.Create)
	protected.DELETE("/events/:id", eventHandler.Delete)
	protected.DELETE("/events/:id/ballots", ballotHandler.Delete)
	protected.POST("/plans/generate", plannerHandler.Generate)
	protected.POST("/plans/save", plannerHandler.Save)
	protected.POST("/schedules/:id/publish", plannerHandler.Publish)
	protected.DELETE("/schedules/:id", plannerHandler.Delete)
	protected.POST("/exports", exportHandler.Create)
	protected.GET("/exports/:id", exportHandler.Status)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}

// cleanupLoop prunes export files older than the signed URL TTL. Expired
// tokens can never be redeemed, so their files are dead weight.
func cleanupLoop(ctx context.Context, store *storage.LocalStorage, ttl time.Duration, logr *zap.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupOlderThan(ttl)
			if err != nil {
				logr.Sugar().Warnw("export cleanup failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				logr.Sugar().Infow("pruned expired exports", "count", len(removed))
			}
		}
	}
}

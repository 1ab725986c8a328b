package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/rehberlik-servisi/rehberlik-api/api/swagger"
	"github.com/rehberlik-servisi/rehberlik-api/internal/handler"
	"github.com/rehberlik-servisi/rehberlik-api/internal/middleware"
	"github.com/rehberlik-servisi/rehberlik-api/internal/repository"
	"github.com/rehberlik-servisi/rehberlik-api/internal/service"
	"github.com/rehberlik-servisi/rehberlik-api/pkg/cache"
	"github.com/rehberlik-servisi/rehberlik-api/pkg/config"
	"github.com/rehberlik-servisi/rehberlik-api/pkg/database"
	"github.com/rehberlik-servisi/rehberlik-api/pkg/jobs"
	"github.com/rehberlik-servisi/rehberlik-api/pkg/logger"
	corsmiddleware "github.com/rehberlik-servisi/rehberlik-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rehberlik-servisi/rehberlik-api/pkg/middleware/requestid"
	"github.com/rehberlik-servisi/rehberlik-api/pkg/storage"
)

// @title Rehberlik Referral Analytics API
// @version 0.1.0
// @description Aggregation engine for guidance office referral statistics
// @BasePath /
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

	loc, err := cfg.Location()
	if err != nil {
		logr.Sugar().Fatalw("failed to load timezone", "timezone", cfg.Timezone, "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, stats cache disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Stats.CacheTTL, logr, false)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)
	}

	rosterRepo := repository.NewRosterRepository(db)
	referralRepo := repository.NewReferralRepository(db)

	catalogSvc := service.NewCatalogService(rosterRepo, logr)
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	if err := catalogSvc.Reload(startupCtx); err != nil {
		cancelStartup()
		logr.Sugar().Fatalw("failed to load homeroom roster", "error", err)
	}
	cancelStartup()

	windows := service.NewWindowResolver(loc)
	statsSvc := service.NewStatsService(service.StatsServiceParams{
		Records:  referralRepo,
		Catalog:  catalogSvc,
		Windows:  windows,
		Cache:    cacheSvc,
		Metrics:  metricsSvc,
		Logger:   logr,
		CacheTTL: cfg.Stats.CacheTTL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SIGHUP re-reads the homeroom roster. Cached rollups were aggregated
	// under the old catalog, so drop them alongside.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				reloadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				if err := catalogSvc.Reload(reloadCtx); err != nil {
					logr.Sugar().Errorw("roster reload failed", "error", err)
				} else if err := cacheSvc.Invalidate(reloadCtx, "stats:*"); err != nil {
					logr.Sugar().Warnw("stats cache invalidation failed", "error", err)
				} else {
					logr.Sugar().Infow("roster reloaded, stats cache cleared")
				}
				cancel()
			}
		}
	}()

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(statsSvc, windows, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)

		jobRepo := repository.NewReportJobRepository(db)
		worker := service.NewReportWorker(jobRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("stats-reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		reportSvc = service.NewReportService(jobRepo, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: time.Hour,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	statsHandler := handler.NewStatsHandler(statsSvc, loc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	{
		api.GET("/stats", statsHandler.Query)
		api.GET("/stats/trend", statsHandler.Trend)

		if reportSvc != nil {
			reportHandler := handler.NewReportHandler(reportSvc)
			api.POST("/reports", reportHandler.Create)
			api.GET("/reports/:id", reportHandler.Status)
			api.GET("/reports/:id/download", reportHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "timezone", loc.String())
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

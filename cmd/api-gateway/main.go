package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/teaching-portal-api/api/swagger"
	"github.com/noah-isme/teaching-portal-api/internal/handler"
	"github.com/noah-isme/teaching-portal-api/internal/middleware"
	"github.com/noah-isme/teaching-portal-api/internal/repository"
	"github.com/noah-isme/teaching-portal-api/internal/router"
	"github.com/noah-isme/teaching-portal-api/internal/service"
	"github.com/noah-isme/teaching-portal-api/pkg/cache"
	"github.com/noah-isme/teaching-portal-api/pkg/config"
	"github.com/noah-isme/teaching-portal-api/pkg/database"
	"github.com/noah-isme/teaching-portal-api/pkg/events"
	"github.com/noah-isme/teaching-portal-api/pkg/jobs"
	"github.com/noah-isme/teaching-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/teaching-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/teaching-portal-api/pkg/middleware/requestid"
)

// @title Teaching Portal Grades API
// @version 1.0.0
// @description Gradebook configuration, score entry and final grade aggregation
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, grade caching disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "grades", logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.GradeTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	natsConn, err := events.Connect(cfg.Events.NATSURL, "teaching-portal-api", logr)
	if err != nil {
		logr.Fatal("failed to connect nats", zap.Error(err))
	}
	if natsConn != nil {
		defer natsConn.Close()
	}
	dispatcher := events.NewDispatcher(events.NewNATSPublisher(natsConn, cfg.Events.Subject), jobs.QueueConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: 256,
		MaxRetries: cfg.Events.MaxRetries,
		RetryDelay: cfg.Events.RetryDelay,
		Logger:     logr.Named("events"),
	})
	dispatcher.Start(ctx)
	defer dispatcher.Stop()
	if err := metricsSvc.TrackQueue("grade-events", dispatcher.Stats); err != nil {
		logr.Warn("event queue metrics unavailable", zap.Error(err))
	}

	stores := service.GradingStores{
		Categories: repository.NewGradeCategoryRepository(db),
		Items:      repository.NewGradeItemRepository(db),
		Scores:     repository.NewGradeScoreRepository(db),
		Finals:     repository.NewGradeFinalRepository(db),
		Roster:     repository.NewEnrollmentRepository(db),
		Attendance: repository.NewAttendanceRepository(db),
	}
	validate := validator.New()

	configSvc := service.NewGradeConfigService(stores, cacheSvc, validate, logr)
	scoreSvc := service.NewGradeScoreService(stores, cacheSvc, metricsSvc, validate, logr)
	aggregationSvc := service.NewGradeAggregationService(stores, cacheSvc, metricsSvc, dispatcher, cfg.Grading.LateCredit, logr)
	reportSvc := service.NewGradeReportService(stores, cacheSvc, dispatcher, service.ReportOptions{
		PassMark:      cfg.Grading.PassMark,
		ExcellentMark: cfg.Grading.ExcellentMark,
		CacheTTL:      cfg.Cache.GradeTTL,
	}, validate, logr)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	router.Register(r, cfg, router.Dependencies{
		GradeConfigHandler: handler.NewGradeConfigHandler(configSvc),
		GradeScoreHandler:  handler.NewGradeScoreHandler(scoreSvc),
		FinalGradeHandler:  handler.NewFinalGradeHandler(aggregationSvc, reportSvc),
		MetricsHandler:     handler.NewMetricsHandler(metricsSvc, checks),
		Tokens:             service.NewTokenService(cfg.JWT.Secret),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

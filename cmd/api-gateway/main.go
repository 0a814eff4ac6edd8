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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/cohort-ledger-api/api/swagger"
	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/handler"
	"github.com/noah-isme/cohort-ledger-api/internal/middleware"
	"github.com/noah-isme/cohort-ledger-api/internal/repository"
	"github.com/noah-isme/cohort-ledger-api/internal/service"
	"github.com/noah-isme/cohort-ledger-api/pkg/cache"
	"github.com/noah-isme/cohort-ledger-api/pkg/config"
	"github.com/noah-isme/cohort-ledger-api/pkg/database"
	"github.com/noah-isme/cohort-ledger-api/pkg/jobs"
	"github.com/noah-isme/cohort-ledger-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/cohort-ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/cohort-ledger-api/pkg/middleware/requestid"
	"github.com/noah-isme/cohort-ledger-api/pkg/storage"
)

// @title Cohort Ledger API
// @version 1.0.0
// @description Cohorts, students, instructors, modules and session attendance.
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Stats.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, stats cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	metrics := service.NewMetricsService()
	validate := dto.NewValidator()

	cohortRepo := repository.NewCohortRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	documentRepo := repository.NewDocumentRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheService := service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cfg.Stats.Enabled && redisClient != nil)

	cohortService := service.NewCohortService(cohortRepo, studentRepo, instructorRepo, db, cacheService, metrics, validate, logr,
		service.CohortServiceOptions{StrictStatus: cfg.Cohorts.StrictStatus})
	studentService := service.NewStudentService(studentRepo, cohortRepo, db, cacheService, cfg.Stats.CacheTTL, validate, logr)
	instructorService := service.NewInstructorService(instructorRepo, validate, logr)
	moduleService := service.NewModuleService(moduleRepo, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, documentRepo, cohortRepo, metrics, cfg.Attendance.LateWeight, validate, logr)

	store, err := storage.New(ctx, cfg.Uploads, cfg.APIPrefix+"/uploads/download")
	if err != nil {
		logr.Fatal("failed to init upload storage", zap.Error(err))
	}

	importService := service.NewImportService(store, attendanceService, metrics, logr)
	importQueue := jobs.NewQueue("attendance-imports", importService.Handle, jobs.Config{
		Workers:    cfg.Imports.Workers,
		MaxRetries: cfg.Imports.Retries,
		StatusTTL:  cfg.Imports.StatusTTL,
		Retryable:  service.RetryableImportError,
		Logger:     logr,
	})
	importQueue.Start(ctx)
	defer importQueue.Stop()

	uploadService := service.NewUploadService(store, documentRepo, importQueue, metrics, service.UploadConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
	}, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Auth:        service.NewAuthService(cfg.JWT),
		Logger:      logr,
		Cohorts:     handler.NewCohortHandler(cohortService),
		Students:    handler.NewStudentHandler(studentService),
		Instructors: handler.NewInstructorHandler(instructorService),
		Modules:     handler.NewModuleHandler(moduleService),
		Attendance:  handler.NewAttendanceHandler(attendanceService),
		Uploads:     handler.NewUploadHandler(uploadService),
	}.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
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

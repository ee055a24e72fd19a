package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/histotrack/pathlab-api/api/swagger"
	"github.com/histotrack/pathlab-api/internal/handler"
	"github.com/histotrack/pathlab-api/internal/middleware"
	"github.com/histotrack/pathlab-api/internal/repository"
	"github.com/histotrack/pathlab-api/internal/service"
	"github.com/histotrack/pathlab-api/pkg/cache"
	"github.com/histotrack/pathlab-api/pkg/config"
	"github.com/histotrack/pathlab-api/pkg/database"
	"github.com/histotrack/pathlab-api/pkg/logger"
	corsmiddleware "github.com/histotrack/pathlab-api/pkg/middleware/cors"
	reqidmiddleware "github.com/histotrack/pathlab-api/pkg/middleware/requestid"
)

// @title PathLab API
// @version 1.0.0
// @description Pathology sample tracking and report lifecycle service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, search caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	sampleRepo := repository.NewSampleRepository(db)
	measurementRepo := repository.NewMeasurementRepository(db)
	reportRepo := repository.NewReportRepository(db)
	doctorRepo := repository.NewDoctorRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	imageRepo := repository.NewImageRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)
	auditSvc := service.NewAuditService(auditRepo, service.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
	}, logr)
	auditSvc.Start(context.Background())
	defer auditSvc.Stop()

	// One registry for every service that mutates samples, so report
	// cascades and measurement writes on the same sample serialise.
	sampleLocks := service.NewSampleLocks()

	sampleSvc := service.NewSampleService(sampleRepo, patientRepo, doctorRepo, cacheSvc, metricsSvc, auditSvc, sampleLocks, validate, logr)
	measurementSvc := service.NewMeasurementService(measurementRepo, sampleRepo, cacheSvc, metricsSvc, auditSvc, sampleLocks, validate, logr)
	reportSvc := service.NewReportService(reportRepo, sampleRepo, doctorRepo, patientRepo, measurementRepo, cacheSvc, metricsSvc, auditSvc, sampleLocks, validate, logr)
	doctorSvc := service.NewDoctorService(doctorRepo, auditSvc, validate, logr)
	patientSvc := service.NewPatientService(patientRepo, auditSvc, validate, logr)
	imageSvc := service.NewImageService(imageRepo, sampleRepo, auditSvc, validate, logr)
	overviewSvc := service.NewOverviewService(sampleRepo, reportRepo, logr)

	sampleHandler := handler.NewSampleHandler(sampleSvc)
	measurementHandler := handler.NewMeasurementHandler(measurementSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	doctorHandler := handler.NewDoctorHandler(doctorSvc, sampleSvc)
	patientHandler := handler.NewPatientHandler(patientSvc, sampleSvc)
	imageHandler := handler.NewImageHandler(imageSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, overviewSvc)

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
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Actor(cfg.JWT.Secret, cfg.JWT.Required))

	samples := api.Group("/samples")
	{
		samples.GET("", sampleHandler.Search)
		samples.POST("", sampleHandler.Create)
		samples.GET("/export", sampleHandler.ExportCSV)
		samples.GET("/counts", sampleHandler.Counts)
		samples.GET("/tracking/:code", sampleHandler.GetByTrackingCode)
		samples.GET("/:id", sampleHandler.Get)
		samples.PUT("/:id", sampleHandler.Update)
		samples.PATCH("/:id/status", sampleHandler.UpdateStatus)
		samples.DELETE("/:id", sampleHandler.Delete)
		samples.GET("/:id/readiness", sampleHandler.Readiness)
		samples.GET("/:id/report", reportHandler.GetBySample)

		samples.GET("/:id/measurements", measurementHandler.List)
		samples.POST("/:id/measurements", measurementHandler.Record)
		samples.GET("/:id/measurements/active", measurementHandler.Active)
		samples.POST("/:id/measurements/:version/activate", measurementHandler.ActivateVersion)
		samples.DELETE("/:id/measurements/:measurementId", measurementHandler.Delete)

		samples.GET("/:id/images", imageHandler.List)
		samples.POST("/:id/images", imageHandler.Add)
	}

	reports := api.Group("/reports")
	{
		reports.GET("", reportHandler.List)
		reports.POST("", reportHandler.Create)
		reports.GET("/pending-review", reportHandler.PendingReview)
		reports.GET("/ready-for-release", reportHandler.ReadyForRelease)
		reports.GET("/counts", reportHandler.Counts)
		reports.GET("/:id", reportHandler.Get)
		reports.PUT("/:id", reportHandler.Update)
		reports.DELETE("/:id", reportHandler.Delete)
		reports.POST("/:id/review", reportHandler.SendToReview)
		reports.POST("/:id/issue", reportHandler.Issue)
		reports.POST("/:id/release", reportHandler.Release)
		reports.POST("/:id/cancel", reportHandler.Cancel)
		reports.GET("/:id/pdf", reportHandler.PDF)
	}

	doctors := api.Group("/doctors")
	{
		doctors.GET("", doctorHandler.Search)
		doctors.POST("", doctorHandler.Create)
		doctors.GET("/:id", doctorHandler.Get)
		doctors.PUT("/:id", doctorHandler.Update)
		doctors.POST("/:id/activate", doctorHandler.Activate)
		doctors.POST("/:id/deactivate", doctorHandler.Deactivate)
		doctors.GET("/:id/samples/count", doctorHandler.SampleCount)
	}

	patients := api.Group("/patients")
	{
		patients.GET("", patientHandler.Search)
		patients.POST("", patientHandler.Create)
		patients.GET("/:id", patientHandler.Get)
		patients.PUT("/:id", patientHandler.Update)
		patients.DELETE("/:id", patientHandler.Delete)
		patients.GET("/:id/samples/count", patientHandler.SampleCount)
	}

	images := api.Group("/images")
	{
		images.GET("/:id", imageHandler.Get)
		images.PUT("/:id", imageHandler.Update)
		images.POST("/:id/activate", imageHandler.Activate)
		images.POST("/:id/deactivate", imageHandler.Deactivate)
		images.DELETE("/:id", imageHandler.Delete)
	}

	api.GET("/overview", metricsHandler.Workload)
	api.GET("/metrics/snapshot", metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

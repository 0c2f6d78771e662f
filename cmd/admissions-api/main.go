package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/elimu-sms/admissions-api/api/swagger"
	"github.com/elimu-sms/admissions-api/internal/handler"
	"github.com/elimu-sms/admissions-api/internal/middleware"
	"github.com/elimu-sms/admissions-api/internal/models"
	"github.com/elimu-sms/admissions-api/internal/repository"
	"github.com/elimu-sms/admissions-api/internal/service"
	"github.com/elimu-sms/admissions-api/pkg/cache"
	"github.com/elimu-sms/admissions-api/pkg/config"
	"github.com/elimu-sms/admissions-api/pkg/database"
	"github.com/elimu-sms/admissions-api/pkg/jobs"
	"github.com/elimu-sms/admissions-api/pkg/logger"
	corsmiddleware "github.com/elimu-sms/admissions-api/pkg/middleware/cors"
	reqidmiddleware "github.com/elimu-sms/admissions-api/pkg/middleware/requestid"
	"github.com/elimu-sms/admissions-api/pkg/storage"
)

// @title Admissions API
// @version 1.0.0
// @description Admissions workflow engine for the school management system
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
		logr.Sugar().Warnw("redis unavailable, summary caching disabled", "error", err)
		redisClient = nil
	}

	documentStore, err := storage.NewDocumentStore(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document store", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	applicationRepo := repository.NewApplicationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, logr)

	var sink service.NotificationSink
	if cfg.Notifications.WebhookURL != "" {
		sink = service.NewWebhookSink(cfg.Notifications.WebhookURL)
	} else {
		sink = service.NewLogSink(logr)
	}
	notifications := service.NewNotificationService(sink, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	notifications.Start(context.Background())
	defer notifications.Stop()

	requiredDocs := make([]models.DocumentType, 0, len(cfg.Admissions.RequiredDocuments))
	for _, raw := range cfg.Admissions.RequiredDocuments {
		requiredDocs = append(requiredDocs, models.DocumentType(raw))
	}
	admissionService := service.NewAdmissionService(service.AdmissionServiceParams{
		Repo:       applicationRepo,
		Audit:      auditRepo,
		Dispatcher: notifications,
		Cache:      cacheService,
		Metrics:    metricsService,
		Logger:     logr,
		Config: service.AdmissionServiceConfig{
			SkipGrades:        models.NewGradeSet(cfg.Admissions.InterviewSkipGrades),
			RequiredDocuments: requiredDocs,
			AcademicYear:      cfg.Admissions.AcademicYear,
			SummaryCacheTTL:   cfg.Admissions.SummaryCacheTTL,
		},
	})
	authService := service.NewAuthService(cfg.JWT.Secret, cfg.JWT.Expiration, logr)
	exportService := service.NewExportService(applicationRepo, cfg.Exports.SchoolName, logr)

	admissionHandler := handler.NewAdmissionHandler(admissionService, documentStore, signer, handler.UploadLimits{
		MaxFileSizeBytes: cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Documents.AllowedMIMEs,
	})
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	admissions := api.Group("/admissions")
	// Signed token downloads carry their own authorization.
	admissions.GET("/documents/download", admissionHandler.DownloadDocument)

	authed := admissions.Group("")
	authed.Use(middleware.JWT(authService))
	authed.POST("", middleware.RequireCapability(models.CapAdmissionsCreate), admissionHandler.Submit)
	authed.GET("/queue", middleware.RequireCapability(models.CapAdmissionsView), admissionHandler.Queue)
	authed.GET("/summary", middleware.RequireCapability(models.CapAdmissionsView), admissionHandler.Summary)
	authed.GET("/register.csv", middleware.RequireCapability(models.CapAdmissionsView),
		middleware.Audit(auditRepo, models.AuditActionRegisterExport, "admissions"), exportHandler.RegisterCSV)
	authed.GET("/:id", middleware.RequireCapability(models.CapAdmissionsView), admissionHandler.Get)
	authed.GET("/:id/offer-letter", middleware.RequireCapability(models.CapAdmissionsView),
		middleware.Audit(auditRepo, models.AuditActionOfferLetterExport, "admissions"), exportHandler.OfferLetter)
	authed.POST("/:id/documents", middleware.RequireCapability(models.CapAdmissionsCreate), admissionHandler.AttachDocument)
	authed.POST("/:id/documents/:type/verify", middleware.RequireCapability(models.CapDocumentsVerify), admissionHandler.VerifyDocument)
	authed.POST("/:id/advance", admissionHandler.Advance)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down", zap.String("reason", "signal received"))
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

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
	"go.uber.org/zap"

	_ "github.com/noah-isme/meeting-assignments-api/api/swagger"
	"github.com/noah-isme/meeting-assignments-api/internal/handler"
	internalmiddleware "github.com/noah-isme/meeting-assignments-api/internal/middleware"
	"github.com/noah-isme/meeting-assignments-api/internal/models"
	"github.com/noah-isme/meeting-assignments-api/internal/repository"
	"github.com/noah-isme/meeting-assignments-api/internal/service"
	"github.com/noah-isme/meeting-assignments-api/pkg/cache"
	"github.com/noah-isme/meeting-assignments-api/pkg/config"
	"github.com/noah-isme/meeting-assignments-api/pkg/database"
	"github.com/noah-isme/meeting-assignments-api/pkg/export"
	"github.com/noah-isme/meeting-assignments-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/meeting-assignments-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/meeting-assignments-api/pkg/middleware/requestid"
)

// @title Meeting Assignments API
// @version 0.1.0
// @description Generates, validates and stores weekly meeting part assignments.
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	deps := map[string]handler.Pinger{"database": db}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Assignments.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis, 0)
		if err != nil {
			logr.Warn("redis unavailable, proposals stay in memory", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			deps["redis"] = cache.Pinger{Client: client}
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Assignments.ProposalTTL, logr, cacheRepo != nil)

	validate := validator.New()
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Validity: cfg.JWT.Expiration,
	})
	exporter := service.NewExportService(logr, export.NewCSVExporter(), export.NewPDFExporter("Meeting Assignments"))

	assignmentSvc := service.NewAssignmentService(
		repository.NewStudentRepository(db),
		repository.NewQualificationRepository(db),
		repository.NewFamilyRepository(db),
		repository.NewProgramRepository(db),
		repository.NewAssignmentRepository(db),
		exporter,
		db,
		cacheSvc,
		metricsSvc,
		validate,
		logr,
		service.AssignmentServiceConfig{
			ProposalTTL:        cfg.Assignments.ProposalTTL,
			HistoryWeeks:       cfg.Assignments.HistoryWeeks,
			PreferFamilyPairs:  cfg.Assignments.PreferFamilyPairs,
			ValidateOnGenerate: cfg.Assignments.ValidateOnGenerate,
			CacheProposals:     cfg.Assignments.CacheEnabled,
		},
	)

	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, deps)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", metricsHandler.Summary)

	assignments := api.Group("/assignments")
	assignments.Use(internalmiddleware.FeatureGate("assignments", cfg.Assignments.Enabled))
	assignments.Use(internalmiddleware.OptionalJWT(tokens))
	{
		assignments.GET("", assignmentHandler.List)
		assignments.GET("/rules", assignmentHandler.Rules)
		assignments.GET("/export", assignmentHandler.Export)
		assignments.POST("/generate", assignmentHandler.Generate)
		assignments.POST("/validate", assignmentHandler.Validate)
		assignments.POST("/save",
			internalmiddleware.JWT(tokens),
			internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleOverseer),
			assignmentHandler.Save,
		)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	srv := &http.Server{Addr: addr, Handler: r}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

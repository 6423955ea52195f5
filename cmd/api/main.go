package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/clinsched/rotations-api/api/swagger"
	"github.com/clinsched/rotations-api/internal/handler"
	"github.com/clinsched/rotations-api/internal/middleware"
	"github.com/clinsched/rotations-api/internal/repository"
	"github.com/clinsched/rotations-api/internal/service"
	"github.com/clinsched/rotations-api/pkg/cache"
	"github.com/clinsched/rotations-api/pkg/config"
	"github.com/clinsched/rotations-api/pkg/database"
	"github.com/clinsched/rotations-api/pkg/export"
	"github.com/clinsched/rotations-api/pkg/logger"
	corsmiddleware "github.com/clinsched/rotations-api/pkg/middleware/cors"
	reqidmiddleware "github.com/clinsched/rotations-api/pkg/middleware/requestid"
)

// @title Clinical Rotations API
// @version 1.0.0
// @description Rotation scheduling and capacity allocation for clinical placements
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
		logr.Sugar().Warnw("redis unavailable, capacity cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	rotationRepo := repository.NewRotationRepository(db)
	dateRepo := repository.NewRotationDateRepository(db)
	facilityRepo := repository.NewFacilityRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	userRepo := repository.NewUserRepository(db)

	capacityRedis := redisClient
	if !cfg.Capacity.CacheEnabled {
		capacityRedis = nil
	}
	cacheRepo := repository.NewCacheRepository(capacityRedis, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	rotationSvc := service.NewRotationService(rotationRepo, facilityRepo, evaluationRepo, metricsSvc, validate, logr)

	capacitySvc := service.NewCapacityService(rotationRepo, dateRepo, cacheRepo, cfg.Capacity.CacheTTL, logr)
	assignmentSvc := service.NewAssignmentService(rotationRepo, groupRepo, dateRepo, cacheRepo, metricsSvc, validate, logr)
	exportSvc := service.NewExportService(rotationRepo, groupRepo, dateRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	authHandler := handler.NewAuthHandler(authSvc)
	rotationHandler := handler.NewRotationHandler(rotationSvc, capacitySvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	capacityHandler := handler.NewCapacityHandler(capacitySvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("", middleware.JWT(authSvc))

	rotations := protected.Group("/rotations")
	rotations.POST("", rotationHandler.Create)
	rotations.GET("", rotationHandler.List)
	rotations.GET("/:id", rotationHandler.Get)
	rotations.PUT("/:id", rotationHandler.Update)
	rotations.DELETE("/:id", rotationHandler.Delete)
	rotations.GET("/:id/partition", rotationHandler.Partition)
	rotations.GET("/:id/used-dates", capacityHandler.UsedDates)
	if cfg.Exports.Enabled {
		rotations.GET("/:id/schedule", exportHandler.Schedule)
		rotations.GET("/:id/schedule/export", exportHandler.Export)
	}
	rotations.GET("/:id/students/:studentId/dates", assignmentHandler.StudentDates)

	protected.POST("/rotation-dates", assignmentHandler.Assign)
	protected.GET("/rotation-specialities/:id/available-capacity", capacityHandler.Available)
	protected.GET("/groups/:id/rotations", rotationHandler.GroupRotations)
	protected.GET("/facilities/:id/used-dates", rotationHandler.FacilityUsedWindows)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

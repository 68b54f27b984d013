package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/clinpath/logbook-api/api/swagger"
	"github.com/clinpath/logbook-api/internal/handler"
	"github.com/clinpath/logbook-api/internal/middleware"
	"github.com/clinpath/logbook-api/internal/models"
	"github.com/clinpath/logbook-api/internal/repository"
	"github.com/clinpath/logbook-api/internal/service"
	"github.com/clinpath/logbook-api/pkg/cache"
	"github.com/clinpath/logbook-api/pkg/config"
	"github.com/clinpath/logbook-api/pkg/database"
	"github.com/clinpath/logbook-api/pkg/logger"
	corsmiddleware "github.com/clinpath/logbook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/clinpath/logbook-api/pkg/middleware/requestid"
)

// @title Clinical Logbook Review API
// @version 0.1.0
// @description Weekly logbook review workflow for clinical training programmes
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
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Workflow.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, read-model cache disabled", "error", err)
			redisClient = nil
		}
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	logbookRepo := repository.NewLogbookRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	unlockRepo := repository.NewUnlockRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	supervisionRepo := repository.NewSupervisionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "logbook-api",
	})
	views := service.NewViewInvalidator(cacheRepo, logr)
	unlockSvc := service.NewUnlockService(unlockRepo, logbookRepo, supervisionRepo, cfg.Workflow.UnlockMaxDuration, logr,
		service.WithUnlockObserver(metricsSvc),
		service.WithUnlockViewCache(views))
	logbookSvc := service.NewLogbookService(logbookRepo, commentRepo, auditRepo, unlockSvc, entryRepo, supervisionRepo,
		service.LogbookReadConfig{
			CacheEnabled: cfg.Workflow.CacheEnabled,
			CacheTTL:     cfg.Workflow.ReadModelTTL,
			GreenAfter:   cfg.Dashboard.GreenAfter,
			AmberAfter:   cfg.Dashboard.AmberAfter,
		}, logr,
		service.WithViewCache(cacheRepo))
	workflowSvc := service.NewWorkflowService(logbookRepo, entryRepo, supervisionRepo, logr,
		service.WithViewCacheInvalidator(views),
		service.WithTransitionObserver(metricsSvc))
	commentSvc := service.NewCommentService(commentRepo, logbookRepo, entryRepo, supervisionRepo, views, logr)
	entrySvc := service.NewEntryService(entryRepo, logbookRepo, unlockSvc, views, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	logbookHandler := handler.NewLogbookHandler(workflowSvc, logbookSvc)
	commentHandler := handler.NewCommentHandler(commentSvc)
	unlockHandler := handler.NewUnlockHandler(unlockSvc)
	entryHandler := handler.NewEntryHandler(entrySvc)
	dashboardHandler := handler.NewDashboardHandler(logbookSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	logbooks := protected.Group("/logbooks")
	logbooks.POST("", middleware.RequireRoles(models.RoleTrainee), logbookHandler.Create)
	logbooks.GET("", logbookHandler.List)
	logbooks.GET("/:id", logbookHandler.Get)
	logbooks.GET("/:id/audit", logbookHandler.Audit)
	logbooks.POST("/:id/submit", middleware.RequireRoles(models.RoleTrainee), logbookHandler.Submit)
	logbooks.POST("/:id/resubmit", middleware.RequireRoles(models.RoleTrainee), logbookHandler.Resubmit)
	logbooks.POST("/:id/claim", middleware.RequireRoles(models.RoleSupervisor), logbookHandler.ClaimReview)
	logbooks.POST("/:id/approve", middleware.RequireRoles(models.RoleSupervisor), logbookHandler.Approve)
	logbooks.POST("/:id/reject", middleware.RequireRoles(models.RoleSupervisor), logbookHandler.Reject)
	logbooks.POST("/:id/request-changes", middleware.RequireRoles(models.RoleSupervisor), logbookHandler.RequestChanges)
	logbooks.POST("/:id/lock", middleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin), logbookHandler.Lock)
	logbooks.GET("/:id/comments", commentHandler.List)
	logbooks.POST("/:id/comments", middleware.RequireRoles(models.RoleTrainee, models.RoleSupervisor), commentHandler.Create)
	logbooks.POST("/:id/unlock-requests", middleware.RequireRoles(models.RoleTrainee), unlockHandler.Create)

	protected.POST("/comments/:id/replies", middleware.RequireRoles(models.RoleTrainee, models.RoleSupervisor), commentHandler.Reply)
	protected.POST("/unlock-requests/:id/grant", middleware.RequireRoles(models.RoleSupervisor), unlockHandler.Grant)
	protected.PUT("/entries/:id", middleware.RequireRoles(models.RoleTrainee), entryHandler.Update)

	if cfg.Dashboard.Enabled {
		protected.GET("/dashboard/logbooks", dashboardHandler.Logbooks)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

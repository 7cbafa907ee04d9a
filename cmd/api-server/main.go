package main

import (
	"context"
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

	_ "github.com/m88-digital/idea-intake-api/api/swagger"
	"github.com/m88-digital/idea-intake-api/internal/db"
	"github.com/m88-digital/idea-intake-api/internal/handler"
	"github.com/m88-digital/idea-intake-api/internal/middleware"
	"github.com/m88-digital/idea-intake-api/internal/repository"
	"github.com/m88-digital/idea-intake-api/internal/service"
	"github.com/m88-digital/idea-intake-api/pkg/cache"
	"github.com/m88-digital/idea-intake-api/pkg/config"
	"github.com/m88-digital/idea-intake-api/pkg/database"
	"github.com/m88-digital/idea-intake-api/pkg/logger"
	corsmiddleware "github.com/m88-digital/idea-intake-api/pkg/middleware/cors"
	reqidmiddleware "github.com/m88-digital/idea-intake-api/pkg/middleware/requestid"
)

// @title Idea Intake API
// @version 1.0.0
// @description Employee idea intake, review and analytics service
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

	pg, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer pg.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(pg); err != nil {
			logr.Sugar().Fatalw("failed to apply migrations", "error", err)
		}
	}

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, statistics caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled)
	}

	validate := validator.New()

	ideaRepo := repository.NewIdeaRepository(pg)
	auditRepo := repository.NewAuditRepository(pg)
	userRepo := repository.NewUserRepository(pg)

	auditService := service.NewAuditService(auditRepo, logr)

	notificationService := service.NewNotificationService(cfg.Notifications, logr)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	notificationService.Start(ctx)
	defer notificationService.Stop()

	ideaService := service.NewIdeaService(ideaRepo, auditService, notificationService, cacheService, metricsService, validate, logr)
	analyticsService := service.NewAnalyticsService(ideaRepo, cacheService, logr)
	exportService := service.NewExportService(ideaRepo, service.ExportConfig{MaxRows: cfg.Exports.MaxRows}, logr, nil, nil)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	ideaHandler := handler.NewIdeaHandler(ideaService, auditService)
	auditHandler := handler.NewAuditHandler(auditService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	exportHandler := handler.NewExportHandler(exportService)
	authHandler := handler.NewAuthHandler(authService)
	metricsHandler := handler.NewMetricsHandler(metricsService, pg, redisClient)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)

		api.POST("/ideas", ideaHandler.Create)
		api.GET("/ideas/:id", middleware.OptionalJWT(authService), ideaHandler.Get)

		authed := api.Group("", middleware.JWT(authService))
		{
			authed.POST("/auth/logout", authHandler.Logout)
			authed.GET("/auth/me", authHandler.Me)
		}

		admin := api.Group("", middleware.JWT(authService), middleware.AdminOnly())
		{
			admin.GET("/ideas", ideaHandler.List)
			admin.PATCH("/ideas/:id/status", ideaHandler.Transition)
			admin.PATCH("/ideas/:id/review", ideaHandler.UpdateReview)
			admin.GET("/ideas/:id/logs", ideaHandler.Logs)
			admin.GET("/audit-logs", auditHandler.List)
			if cfg.Analytics.Enabled {
				admin.GET("/analytics/ideas", analyticsHandler.Ideas)
			}
			if cfg.Exports.Enabled {
				admin.GET("/exports/ideas", exportHandler.Ideas)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped", zap.String("addr", addr))
}

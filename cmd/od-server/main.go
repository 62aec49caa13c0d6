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

	_ "github.com/citport/od-portal-api/api/swagger"
	"github.com/citport/od-portal-api/internal/handler"
	"github.com/citport/od-portal-api/internal/middleware"
	"github.com/citport/od-portal-api/internal/repository"
	"github.com/citport/od-portal-api/internal/service"
	"github.com/citport/od-portal-api/pkg/cache"
	"github.com/citport/od-portal-api/pkg/config"
	"github.com/citport/od-portal-api/pkg/database"
	"github.com/citport/od-portal-api/pkg/logger"
	corsmiddleware "github.com/citport/od-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/citport/od-portal-api/pkg/middleware/requestid"
)

// @title OD Portal API
// @version 1.0.0
// @description Digital portal for students to apply for On-Duty and faculty to review requests
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to apply migrations", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	validate := validator.New()
	requestSvc := service.NewRequestService(repository.NewRequestRepository(db), cacheSvc, metricsSvc, validate, logr)
	authSvc := service.NewAuthService(repository.NewFacultyRepository(db), validate, logr, service.AuthServiceConfig{
		EmailDomain: cfg.Auth.EmailDomain,
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})

	if err := authSvc.EnsureDefaultFaculty(ctx, cfg.Auth.FacultyUsername, cfg.Auth.FacultyPassword); err != nil {
		logr.Sugar().Fatalw("failed to seed faculty account", "error", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	odHandler := handler.NewODHandler(requestSvc)

	od := r.Group("/od")
	{
		od.POST("/auth/login", authHandler.StudentLogin)
		od.POST("/auth/faculty-login", authHandler.FacultyLogin)
		od.POST("/apply", odHandler.Apply)
		od.GET("/student/:rollNo", odHandler.ByRollNo)
		od.GET("/student/email/:email", odHandler.ByEmail)
		od.GET("/stats", odHandler.Stats)

		faculty := od.Group("")
		faculty.Use(middleware.FacultyJWT(authSvc))
		faculty.GET("/all", odHandler.All)
		faculty.PATCH("/status/:id", odHandler.UpdateStatus)
		if cfg.Exports.Enabled {
			faculty.GET("/export", odHandler.Export)
		}
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

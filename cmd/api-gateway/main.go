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

	_ "github.com/classmate-app/homework-api/api/swagger"
	"github.com/classmate-app/homework-api/internal/handler"
	internalmiddleware "github.com/classmate-app/homework-api/internal/middleware"
	"github.com/classmate-app/homework-api/internal/live"
	"github.com/classmate-app/homework-api/internal/repository"
	"github.com/classmate-app/homework-api/internal/service"
	"github.com/classmate-app/homework-api/pkg/cache"
	"github.com/classmate-app/homework-api/pkg/config"
	"github.com/classmate-app/homework-api/pkg/database"
	"github.com/classmate-app/homework-api/pkg/imaging"
	"github.com/classmate-app/homework-api/pkg/jobs"
	"github.com/classmate-app/homework-api/pkg/logger"
	corsmiddleware "github.com/classmate-app/homework-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classmate-app/homework-api/pkg/middleware/requestid"
	"github.com/classmate-app/homework-api/pkg/ratelimit"
	"github.com/classmate-app/homework-api/pkg/storage"
)

// @title Classmate Homework API
// @version 1.0.0
// @description Class homework tracking with proof uploads, peer moderation and live leaderboards
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, live updates stay instance-local", "error", err)
		rdb = nil
	} else {
		defer rdb.Close() //nolint:errcheck
	}

	hub := live.NewHub(rdb, logr)
	go hub.Run(ctx)

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	processor := imaging.NewProcessor(cfg.Uploads.MaxFileSize, cfg.Uploads.MaxDimension, cfg.Uploads.JPEGQuality)

	validate := validator.New()
	limiter := ratelimit.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	homeworkRepo := repository.NewHomeworkRepository(db)
	proofRepo := repository.NewProofRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "homework-api",
		EmailDomain:        cfg.Auth.EmailDomain,
		RequireVerified:    cfg.Auth.RequireVerified,
		MinPasswordLen:     cfg.Auth.MinPasswordLen,
	})
	classSvc := service.NewClassService(classRepo, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, classRepo, hub, logr, jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		BufferSize: cfg.Notify.BufferSize,
		MaxRetries: cfg.Notify.MaxRetries,
		RetryDelay: cfg.Notify.RetryDelay,
		Logger:     logr,
	}).WithMetrics(metricsSvc)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	homeworkSvc := service.NewHomeworkService(homeworkRepo, classRepo, notificationSvc, hub, validate, logr).WithMetrics(metricsSvc)
	proofSvc := service.NewProofService(proofRepo, homeworkRepo, classRepo, processor, store, signer, hub, logr).WithMetrics(metricsSvc)
	leaderboardSvc := service.NewLeaderboardService(userRepo, classRepo, hub, logr)
	completionSvc := service.NewCompletionService(homeworkRepo, proofRepo, classRepo, leaderboardSvc, logr).WithMetrics(metricsSvc)

	authHandler := handler.NewAuthHandler(authSvc)
	classHandler := handler.NewClassHandler(classSvc)
	homeworkHandler := handler.NewHomeworkHandler(homeworkSvc, completionSvc)
	proofHandler := handler.NewProofHandler(proofSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardSvc)
	streamHandler := handler.NewStreamHandler(hub, classSvc, homeworkSvc, proofSvc, notificationSvc, leaderboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", internalmiddleware.RateLimit(limiter, "register", cfg.Limits.Register), authHandler.Register)
		auth.POST("/login", internalmiddleware.RateLimit(limiter, "login", cfg.Limits.Login), authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/verify", authHandler.VerifyEmail)
		auth.POST("/verify/resend", authHandler.ResendVerification)
	}

	// Proof images are fetched with short-lived signed tokens instead of a JWT
	// so they can be embedded directly in <img> tags.
	api.GET("/proof-images", proofHandler.Image)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))
	{
		secured.POST("/auth/logout", authHandler.Logout)
		secured.GET("/auth/me", authHandler.Me)
	}

	verified := secured.Group("")
	verified.Use(internalmiddleware.RequireVerified())
	{
		verified.POST("/classes", internalmiddleware.RateLimit(limiter, "create_class", cfg.Limits.CreateClass), classHandler.Create)
		verified.POST("/classes/join", classHandler.Join)
		verified.GET("/classes/mine", classHandler.Mine)
		verified.GET("/classes/:id", classHandler.Detail)
		verified.GET("/classes/:id/members", classHandler.Members)

		verified.POST("/classes/:id/homework", internalmiddleware.RateLimit(limiter, "add_homework", cfg.Limits.AddHomework), homeworkHandler.Create)
		verified.GET("/classes/:id/homework", homeworkHandler.List)
		verified.GET("/classes/:id/calendar", homeworkHandler.Calendar)
		verified.GET("/homework/:id", homeworkHandler.Get)
		verified.POST("/homework/:id/complete", internalmiddleware.RateLimit(limiter, "mark_complete", cfg.Limits.MarkComplete), homeworkHandler.Complete)
		verified.GET("/me/completions", homeworkHandler.Completed)

		verified.POST("/homework/:id/proofs", internalmiddleware.RateLimit(limiter, "upload_proof", cfg.Limits.UploadProof), proofHandler.Attach)
		verified.GET("/homework/:id/proofs", proofHandler.List)
		verified.DELETE("/homework/:id/proofs", proofHandler.Remove)
		verified.POST("/homework/:id/proofs/:userId/votes", proofHandler.Vote)
		verified.POST("/homework/:id/proofs/:userId/reports", proofHandler.Report)

		verified.GET("/notifications", notificationHandler.Feed)
		verified.POST("/notifications/:id/read", notificationHandler.MarkRead)

		verified.GET("/classes/:id/leaderboard", leaderboardHandler.Class)
		verified.GET("/classes/:id/leaderboard/export", leaderboardHandler.Export)
		verified.GET("/leaderboard", leaderboardHandler.Global)

		verified.GET("/classes/:id/homework/stream", streamHandler.ClassHomework)
		verified.GET("/classes/:id/leaderboard/stream", streamHandler.ClassLeaderboard)
		verified.GET("/homework/:id/proofs/stream", streamHandler.HomeworkProofs)
		verified.GET("/notifications/stream", streamHandler.Notifications)
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
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

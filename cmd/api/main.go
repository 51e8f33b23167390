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

	_ "github.com/noah-isme/campus-connect-api/api/swagger"
	"github.com/noah-isme/campus-connect-api/internal/handler"
	"github.com/noah-isme/campus-connect-api/internal/middleware"
	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/repository"
	"github.com/noah-isme/campus-connect-api/internal/service"
	"github.com/noah-isme/campus-connect-api/pkg/cache"
	"github.com/noah-isme/campus-connect-api/pkg/config"
	"github.com/noah-isme/campus-connect-api/pkg/database"
	"github.com/noah-isme/campus-connect-api/pkg/export"
	"github.com/noah-isme/campus-connect-api/pkg/jobs"
	"github.com/noah-isme/campus-connect-api/pkg/logger"
	"github.com/noah-isme/campus-connect-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/campus-connect-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-connect-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-connect-api/pkg/storage"
)

// @title Campus Connect API
// @version 1.0.0
// @description University volunteering management API
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
		logr.Sugar().Warnw("redis unavailable, rate limiting disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	hoursRepo := repository.NewHoursRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)

	mailQueue := jobs.NewQueue("mail", service.MailHandler(mailer.NewSMTP(cfg.SMTP), logr), jobs.QueueConfig{
		Workers:    cfg.Mail.WorkerConcurrency,
		MaxRetries: cfg.Mail.WorkerRetries,
		RetryDelay: cfg.Mail.RetryDelay,
		Logger:     logr,
	})
	mailQueue.Start(context.Background())
	defer mailQueue.Stop()

	notifier := service.NewNotifier(notificationRepo, mailQueue, logr)

	certificateStorage, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare certificate storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campus-connect-api",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	activityService := service.NewActivityService(activityRepo, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, activityRepo, userRepo, notifier, validate, logr)
	hoursService := service.NewHoursService(hoursRepo, enrollmentRepo, activityRepo, userRepo, notifier, validate, logr)
	notificationService := service.NewNotificationService(notificationRepo, logr)
	sessionService := service.NewSessionService(sessionRepo, enrollmentRepo, activityRepo, cfg.Sessions.QRWindow, validate, logr)
	certificateService := service.NewCertificateService(certificateRepo, activityRepo, enrollmentRepo, hoursRepo, export.NewCertificatePDF(), certificateStorage, signer, notifier, logr)
	metricsService := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	activityHandler := handler.NewActivityHandler(activityService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService, metricsService)
	hoursHandler := handler.NewHoursHandler(hoursService, metricsService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	sessionHandler := handler.NewSessionHandler(sessionService, metricsService)
	certificateHandler := handler.NewCertificateHandler(certificateService, metricsService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

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
		auth.POST("/login", middleware.Audit(userRepo, models.AuditActionLogin, "auth"), authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	users := api.Group("/users", middleware.JWT(authService))
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
		users.PUT("/me", userHandler.UpdateProfile)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
		users.PUT("/:id/role", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(userRepo, models.AuditActionRoleChange, "user"), userHandler.UpdateRole)
		users.PUT("/:id/active", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(userRepo, models.AuditActionUserUpdate, "user"), userHandler.UpdateActive)
	}

	activities := api.Group("/activities", middleware.JWT(authService))
	{
		activities.GET("", activityHandler.List)
		activities.GET("/:id", activityHandler.Get)
		activities.POST("", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), activityHandler.Create)
		activities.PUT("/:id", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), activityHandler.Update)
		activities.PUT("/:id/status", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), activityHandler.UpdateStatus)

		activities.POST("/:id/enrollments", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.Apply)
		activities.GET("/:id/enrollments", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), enrollmentHandler.ListForActivity)
		activities.PUT("/:id/enrollments/:enrollmentId/confirm", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), enrollmentHandler.Confirm)
		activities.PUT("/:id/enrollments/:enrollmentId/reject", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), enrollmentHandler.Reject)

		activities.GET("/:id/hours", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), hoursHandler.ListForActivity)

		activities.GET("/:id/sessions", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), sessionHandler.ListForActivity)
		activities.POST("/:id/sessions", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), sessionHandler.Schedule)

		activities.POST("/:id/certificates", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), certificateHandler.Issue)
	}

	enrollments := api.Group("/enrollments", middleware.JWT(authService))
	{
		enrollments.GET("/me", enrollmentHandler.ListMine)
		enrollments.DELETE("/:id", enrollmentHandler.Withdraw)
	}

	hours := api.Group("/hours", middleware.JWT(authService))
	{
		hours.POST("", middleware.RequireRoles(models.RoleStudent), hoursHandler.Log)
		hours.GET("/me", hoursHandler.ListMine)
		hours.PUT("/:id/approve", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), hoursHandler.Approve)
		hours.PUT("/:id/reject", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), hoursHandler.Reject)
		hours.POST("/:id/request-info", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), hoursHandler.RequestInfo)
	}

	notifications := api.Group("/notifications", middleware.JWT(authService))
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.PUT("/read-all", notificationHandler.MarkAllRead)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
		notifications.DELETE("/:id", notificationHandler.Delete)
	}

	sessions := api.Group("/sessions", middleware.JWT(authService))
	{
		sessions.POST("/:id/qr", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), sessionHandler.GenerateQR)
		sessions.PUT("/:id/complete", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), sessionHandler.Complete)
		sessions.POST("/:id/checkin", middleware.RequireRoles(models.RoleStudent), sessionHandler.Checkin)
	}

	certificates := api.Group("/certificates")
	{
		certificates.GET("/verify/:code",
			middleware.RateLimit(redisClient, "verify", cfg.RateLimit.VerifyMax, cfg.RateLimit.VerifyWindow, logr),
			certificateHandler.Verify)
		certificates.GET("/download", certificateHandler.Download)
		certificates.GET("/me", middleware.JWT(authService), certificateHandler.ListMine)
		certificates.GET("/:id/download-url", middleware.JWT(authService), certificateHandler.DownloadURL)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

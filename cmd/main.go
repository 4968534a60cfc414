package main

import (
	"context"
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/caching"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/config"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/handlers"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/jobs"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/jobs/background"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/middleware"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/repositories"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/services"
	"github.com/Flormusi/trainfit-backend-clean-sub000/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Database connection pool
	pool, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// JWT configuration
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret: %s", jwtSecret)
	}

	// Receipt storage
	receiptSvc, err := services.NewReceiptService(
		cfg.MinioEndpoint,
		cfg.MinioAccessKey,
		cfg.MinioSecretKey,
		cfg.MinioUseSSL,
		cfg.MinioBucket,
	)
	if err != nil {
		log.Fatalf("Failed to initialize receipt storage: %v", err)
	}
	if err := receiptSvc.EnsureBucketExists(context.Background()); err != nil {
		log.Printf("WARNING: receipt bucket check failed: %v", err)
	}

	// Create repositories
	userRepo := repositories.NewUserRepo(pool)
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	notificationRepo := repositories.NewNotificationRepo(pool)

	// Create cache service
	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Create services
	realtimeSvc := services.NewRedisRealtimeService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	emailSvc := services.NewSMTPEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	statusSvc := services.NewBillingStatusService(subscriptionRepo, paymentRepo)
	reconciler := services.NewWebhookReconciler(subscriptionRepo, paymentRepo, notificationRepo, realtimeSvc)
	overrideSvc := services.NewPaymentOverrideService(subscriptionRepo, paymentRepo, notificationRepo, realtimeSvc)

	// Create handlers
	billingHandlers := handlers.NewBillingHandlers(statusSvc, overrideSvc, receiptSvc)
	webhookHandlers := handlers.NewWebhookHandlers(reconciler, cacheSvc, cfg.ProcessorWebhookSecret)
	notificationHandlers := handlers.NewNotificationHandlers(notificationRepo)

	// Background jobs
	reminderJob := jobs.NewPaymentReminderJob(
		subscriptionRepo,
		paymentRepo,
		userRepo,
		notificationRepo,
		cacheSvc,
		emailSvc,
	)
	scheduler, err := background.NewJobScheduler(reminderJob, cfg.ReminderHour)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop job scheduler: %v", err)
		}
	}()

	// Create Echo instance
	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", handlers.HealthCheck)
	e.GET("/health/ready", func(c echo.Context) error {
		return handlers.ReadinessCheck(c, pool)
	})

	// API routes
	v1 := e.Group("/v1")

	// Payment processor callbacks (signature-verified, no JWT)
	v1.POST("/webhooks/payments", webhookHandlers.ProcessorWebhook)

	// Protected routes (require JWT)
	protected := v1.Group("")
	protected.Use(middleware.JWTMiddleware(userRepo, jwtSecret))

	// Billing routes
	protected.GET("/billing/status", billingHandlers.GetBillingStatus)
	protected.GET("/billing/payments", billingHandlers.ListPayments)
	protected.GET("/billing/plans", billingHandlers.ListPlans)

	// Notification routes
	protected.GET("/notifications", notificationHandlers.ListNotifications)
	protected.PUT("/notifications/:id/read", notificationHandlers.MarkNotificationRead)

	// Trainer routes (require an active trainer/client relationship)
	trainerMw := middleware.NewTrainerMiddleware(userRepo)
	trainer := protected.Group("/trainer")
	trainer.PUT("/clients/:id/payment", billingHandlers.SetClientPayment, trainerMw.RequireClientRelationship("id"))
	trainer.POST("/clients/:id/payment/receipt", billingHandlers.UploadReceipt, trainerMw.RequireClientRelationship("id"))

	log.Printf("TrainFit billing server v%s starting on port %d", version, cfg.Port)
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Port)))
}

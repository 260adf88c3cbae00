package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/planwatch/planwatch_api/internal/cache"
	"github.com/planwatch/planwatch_api/internal/config"
	"github.com/planwatch/planwatch_api/internal/database"
	"github.com/planwatch/planwatch_api/internal/handler"
	"github.com/planwatch/planwatch_api/internal/middleware"
	"github.com/planwatch/planwatch_api/internal/repository"
	"github.com/planwatch/planwatch_api/internal/scraper"
	"github.com/planwatch/planwatch_api/internal/service"
	"github.com/planwatch/planwatch_api/internal/sse"
	"github.com/planwatch/planwatch_api/internal/utils"
	"github.com/planwatch/planwatch_api/internal/worker"
	"github.com/planwatch/planwatch_api/pkg/mailer"
)

// main is the application entrypoint for the Planwatch API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting planwatch api")

	utils.SetJWTSecret(cfg.JWTSecret)

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 3c. Initialize price cache
	priceCache := cache.NewPriceCache(redisClient, 24*time.Hour)

	// 4. Initialize the browser extractor
	registry := scraper.NewRegistry()
	extractor, err := scraper.NewBrowserExtractor(cfg.Scraper, registry)
	if err != nil {
		log.Error().Err(err).Msg("browser extractor initialization failed")
		fmt.Fprintf(os.Stderr, "browser extractor initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer extractor.Close()
	log.Info().Bool("headless", cfg.Scraper.Headless).Msg("browser extractor ready")

	// 5. Initialize repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	planRepo := repository.NewPlanRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	dealRepo := repository.NewDealRepository(db)

	// 5a. Initialize SSE hub
	hub := sse.NewHub()

	// 5b. Initialize notification sinks from config
	var sinks []service.NotificationSink
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != 0 {
		tgSink, err := service.NewTelegramSink(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram sink initialization failed - channel disabled")
		} else {
			sinks = append(sinks, tgSink)
			log.Info().Msg("Telegram sink registered")
		}
	}
	if cfg.Notify.SlackWebhook != "" {
		sinks = append(sinks, service.NewSlackSink(cfg.Notify.SlackWebhook))
		log.Info().Msg("Slack sink registered")
	}
	if cfg.Notify.SMTPHost != "" {
		m := mailer.NewMailer(
			cfg.Notify.SMTPHost, cfg.Notify.SMTPPort,
			cfg.Notify.SMTPUser, cfg.Notify.SMTPPass,
			cfg.Notify.FromName, cfg.Notify.FromEmail,
		)
		sinks = append(sinks, service.NewEmailSink(m, userRepo))
		log.Info().Msg("Email sink registered")
	}
	if len(sinks) == 0 {
		log.Warn().Msg("No notification sinks configured - alerts will only reach the in-app inbox")
	}

	// 6. Initialize services
	authSvc := service.NewAuthService(userRepo)
	productSvc := service.NewProductService(productRepo, planRepo, snapshotRepo, priceCache)
	trackingSvc := service.NewTrackingService(subRepo, planRepo, productRepo)
	alertSvc := service.NewAlertService(alertRepo)
	notifier := service.NewNotifier(notificationRepo, sinks, cfg.Worker.NotifyMaxAttempts)
	detector := service.NewChangeDetector(snapshotRepo)
	dispatcher := service.NewAlertDispatcher(alertRepo, notifier, sse.NewHubNotifier(hub))
	scheduler := service.NewScheduler(
		productRepo, planRepo, snapshotRepo, subRepo,
		extractor, detector, dispatcher, priceCache,
		cfg.Worker, cfg.Scraper,
	)

	// 7. Initialize handlers
	handlers := &Handlers{
		Health:   handler.NewHealthHandler(db, redisClient),
		Auth:     handler.NewAuthHandler(authSvc),
		Product:  handler.NewProductHandler(productSvc),
		Tracking: handler.NewTrackingHandler(trackingSvc),
		Alert:    handler.NewAlertHandler(alertSvc),
		Scraping: handler.NewScrapingHandler(scheduler),
		Catalog:  handler.NewAdminCatalogHandler(productRepo, planRepo),
		Deal:     handler.NewDealHandler(dealRepo),
		SSE:      handler.NewSSEHandler(hub),
	}

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware()

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start workers
	go worker.NewScrapeWorker(scheduler, cfg.Worker.ScrapeInterval).Start(ctx)
	go worker.NewNotificationWorker(notifier, cfg.Worker.NotifyInterval).Start(ctx)
	go worker.NewDealExpiryWorker(dealRepo, cfg.Worker.DealExpiryInterval).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Product  *handler.ProductHandler
	Tracking *handler.TrackingHandler
	Alert    *handler.AlertHandler
	Scraping *handler.ScrapingHandler
	Catalog  *handler.AdminCatalogHandler
	Deal     *handler.DealHandler
	SSE      *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)

	// Auth
	router.POST("/v1/auth/register", handlers.Auth.Register)
	router.POST("/v1/auth/login", handlers.Auth.Login)

	// Public catalog
	router.GET("/v1/products", handlers.Product.GetProducts)
	router.GET("/v1/products/:slug", handlers.Product.GetProduct)
	router.GET("/v1/plans/:planId/history", handlers.Product.GetPlanHistory)
	router.GET("/v1/deals", handlers.Deal.GetDeals)

	// SSE stream (JWT via query param, EventSource cannot set headers)
	router.GET("/v1/alerts/stream", handlers.SSE.Stream)

	// Authenticated user routes
	user := router.Group("/v1")
	user.Use(jwtMiddleware.Handle())
	{
		user.GET("/tracking", handlers.Tracking.GetTracked)
		user.POST("/tracking", handlers.Tracking.Track)
		user.PUT("/tracking/:id", handlers.Tracking.UpdatePreferences)
		user.DELETE("/tracking/:id", handlers.Tracking.Untrack)

		user.GET("/alerts", handlers.Alert.GetAlerts)
		user.GET("/alerts/unread-count", handlers.Alert.GetUnreadCount)
		user.PUT("/alerts/:id/read", handlers.Alert.MarkRead)
	}

	// Admin routes
	admin := router.Group("/v1/admin")
	admin.Use(jwtMiddleware.Handle(), jwtMiddleware.RequireAdmin())
	{
		admin.POST("/scraping/trigger", handlers.Scraping.Trigger)
		admin.GET("/scraping/status", handlers.Scraping.GetStatus)

		admin.POST("/products", handlers.Catalog.CreateProduct)
		admin.PUT("/products/:id", handlers.Catalog.UpdateProduct)
		admin.POST("/plans", handlers.Catalog.CreatePlan)
		admin.PUT("/plans/:id", handlers.Catalog.UpdatePlan)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

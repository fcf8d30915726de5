// Package main provides the main entry point for the TrendForge content orchestrator
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/trendforge/trendforge/app/handlers"
	"github.com/trendforge/trendforge/app/middleware"
	"github.com/trendforge/trendforge/app/router"
	"github.com/trendforge/trendforge/app/scheduler"
	"github.com/trendforge/trendforge/app/services"
	businessflow "github.com/trendforge/trendforge/business_flow"
	"github.com/trendforge/trendforge/config"
	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting TrendForge application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Setup graceful shutdown
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeTierRegistry builds the generation adapter registry from the
// configured catalog. Slots that cannot be wired fall back to mock adapters
// so every capability stays servable.
func initializeTierRegistry(cfg *config.GenerationConfig) *services.TierRegistry {
	registry := services.NewTierRegistry()

	for i := range cfg.Adapters {
		ac := &cfg.Adapters[i]
		capability := services.Capability(ac.Capability)
		tier := models.QualityTier(ac.Tier)

		var adapter services.CapabilityAdapter
		switch ac.Kind {
		case "http":
			adapter = services.NewHTTPAdapter(ac, capability)
		case "llm":
			if capability != services.CapabilityText {
				log.Printf("Adapter %s: llm kind only serves text, falling back to mock", ac.Name)
				adapter = services.NewMockAdapter(ac.Name, capability, ac.CostPerCall)
				break
			}
			llm, err := services.NewLLMAdapter(ac)
			if err != nil {
				log.Printf("Adapter %s: llm init failed (%v), falling back to mock", ac.Name, err)
				adapter = services.NewMockAdapter(ac.Name, capability, ac.CostPerCall)
				break
			}
			adapter = llm
		default:
			adapter = services.NewMockAdapter(ac.Name, capability, ac.CostPerCall)
		}

		registry.Register(tier, adapter)
	}

	return registry
}

// initializePlatformAdapters builds one distribution adapter per configured
// platform. Platforms without an endpoint get mock adapters.
func initializePlatformAdapters(cfg *config.UploadConfig) map[string]services.PlatformAdapter {
	adapters := make(map[string]services.PlatformAdapter)
	for i := range cfg.Platforms {
		pc := &cfg.Platforms[i]
		if pc.Endpoint == "" {
			adapters[pc.Name] = services.NewMockPlatformAdapter(pc.Name)
			continue
		}
		adapters[pc.Name] = services.NewHTTPPlatformAdapter(pc)
	}
	return adapters
}

// initializeTrendSources resolves the configured trend source names
func initializeTrendSources(names []string) []scheduler.TrendSource {
	var sources []scheduler.TrendSource
	for _, name := range names {
		switch name {
		case "mock":
			sources = append(sources, scheduler.NewMockTrendSource("mock"))
		default:
			log.Printf("Unknown trend source %q, skipping", name)
		}
	}
	return sources
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	trendRepo := repository.NewTrendRepository(db)
	opportunityRepo := repository.NewOpportunityRepository(db)
	jobRepo := repository.NewGenerationJobRepository(db)
	contentRepo := repository.NewContentItemRepository(db)
	uploadRepo := repository.NewUploadTaskRepository(db)

	// Initialize generation and distribution services
	registry := initializeTierRegistry(&cfg.Generation)
	platformAdapters := initializePlatformAdapters(&cfg.Upload)
	admission := scheduler.NewAdmissionManager(cfg.Pipeline.MaxConcurrentJobs, cfg.Pipeline.QueueDepth)

	coordinator := scheduler.NewPipelineCoordinator(
		jobRepo,
		opportunityRepo,
		contentRepo,
		registry,
		admission,
		db,
		rc,
		&cfg.Pipeline,
		&cfg.Cache,
	)

	orchestrator := scheduler.NewUploadOrchestrator(
		uploadRepo,
		contentRepo,
		platformAdapters,
		admission,
		&cfg.Upload,
	)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	opportunityFlow := businessflow.NewOpportunityFlow(
		opportunityRepo,
		trendRepo,
		db,
	)

	jobFlow := businessflow.NewJobFlow(
		jobRepo,
		opportunityRepo,
		coordinator,
		db,
		rc,
		&cfg.Cache,
	)

	uploadFlow := businessflow.NewUploadFlow(
		uploadRepo,
		contentRepo,
		jobRepo,
		orchestrator,
		db,
	)

	reportFlow := businessflow.NewReportFlow(uploadRepo)

	// Initialize handlers
	opportunityHandler := handlers.NewOpportunityHandler(opportunityFlow, jobFlow)
	jobHandler := handlers.NewJobHandler(jobFlow)
	uploadHandler := handlers.NewUploadHandler(uploadFlow, reportFlow)
	authHandler := handlers.NewAuthHandler(tokenService, &cfg.JWT)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		opportunityHandler,
		jobHandler,
		uploadHandler,
		authHandler,
		authMiddleware,
	)

	// Workers start before recovery so recovered work has somewhere to go
	stopCoordinator := coordinator.Start(context.Background())
	stopFuncs = append(stopFuncs, stopCoordinator)

	stopOrchestrator := orchestrator.Start(context.Background())
	stopFuncs = append(stopFuncs, stopOrchestrator)

	recoveryCtx, recoveryCancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer recoveryCancel()
	if err := coordinator.RecoverInterrupted(recoveryCtx, cfg.Scheduler.ResumeOnStart); err != nil {
		log.Printf("Pipeline recovery failed: %v", err)
	}
	if err := orchestrator.Recover(recoveryCtx); err != nil {
		log.Printf("Upload recovery failed: %v", err)
	}

	// Start the trend poller
	sources := initializeTrendSources(cfg.Scheduler.TrendSources)
	if len(sources) > 0 {
		var defaultPlatforms []string
		for _, pc := range cfg.Upload.Platforms {
			defaultPlatforms = append(defaultPlatforms, pc.Name)
		}

		scorer := businessflow.NewScorer(&cfg.Scoring)
		poller := scheduler.NewTrendPoller(
			sources,
			trendRepo,
			opportunityRepo,
			opportunityFlow,
			scorer,
			db,
			rc,
			&cfg.Scheduler,
			&cfg.Cache,
			defaultPlatforms,
		)
		stopPoller := poller.Start(context.Background())
		stopFuncs = append(stopFuncs, stopPoller)
	}

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

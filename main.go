// Package main provides the main entry point for the AdGenius Meta Ads backend
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adgenius-ai/adgenius/app/handlers"
	"github.com/adgenius-ai/adgenius/app/middleware"
	"github.com/adgenius-ai/adgenius/app/router"
	"github.com/adgenius-ai/adgenius/app/services"
	businessflow "github.com/adgenius-ai/adgenius/business_flow"
	"github.com/adgenius-ai/adgenius/config"
	"github.com/adgenius-ai/adgenius/models"
	"github.com/adgenius-ai/adgenius/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// metaGraphBaseURL is the production Graph API host used when no tool server
// proxies the traffic.
const metaGraphBaseURL = "https://graph.facebook.com"

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting AdGenius application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

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

// setupLogging routes the standard logger to a rotating file when configured
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output != "file" && cfg.Output != "both" {
		return
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, rotating))
		return
	}
	log.SetOutput(rotating)
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

	if err := db.AutoMigrate(
		&models.User{},
		&models.BusinessProfile{},
		&models.Integration{},
		&models.ChatMessage{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
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

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s", cfg.RedisURL)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	if client == nil {
		return func() {}
	}

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
		stopFuncs = append(stopFuncs, cancel, func() { _ = rc.Close() })
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewBusinessProfileRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)
	chatRepo := repository.NewChatMessageRepository(db)

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

	// Load the agent tool configuration once at startup so a broken document
	// fails the boot instead of the first chat request.
	toolCfg, err := services.NewToolConfigLoader(cfg.Agent.ToolConfigPath).Load()
	if err != nil {
		return nil, err
	}

	llmClient := services.NewGeminiClient(&cfg.LLM)

	agentFactory := func(accessToken string) (*services.AdsAgent, error) {
		userCfg := toolCfg.WithAccessToken(accessToken)
		agentTools := services.NewGraphClient(
			userCfg.Servers[services.MetaToolServerName].BaseURL,
			cfg.Meta.GraphVersion,
			cfg.Meta.Timeout,
		)
		return services.NewAdsAgent(llmClient, agentTools, accessToken, cfg.Agent.MaxSteps), nil
	}
	agentCache := services.NewAgentCache(agentFactory)
	stopFuncs = append(stopFuncs, agentCache.CancelAll)

	// The shared tool client talks to the configured tool server, the direct
	// client to the Graph API itself. The gateway tries the user's cached
	// tool client first, then these two in order.
	toolClient := services.NewGraphClient(
		toolCfg.Servers[services.MetaToolServerName].BaseURL,
		cfg.Meta.GraphVersion,
		cfg.Meta.Timeout,
	)
	directClient := services.NewGraphClient(metaGraphBaseURL, cfg.Meta.GraphVersion, cfg.Meta.Timeout)

	gateway := services.NewMetaGateway(&cfg.Meta, agentCache, toolClient, directClient, rc, cfg.Cache.RedisPrefix, cfg.Cache.DefaultTTL)

	// Initialize flows
	authFlow := businessflow.NewAuthFlow(
		userRepo,
		profileRepo,
		integrationRepo,
		tokenService,
		agentCache,
		cfg.Agent.PrewarmOnLogin,
		db,
	)

	profileFlow := businessflow.NewBusinessProfileFlow(profileRepo, db)

	integrationFlow := businessflow.NewIntegrationFlow(
		integrationRepo,
		gateway,
		agentCache,
		db,
	)

	oauthFlow := businessflow.NewOAuthFlow(
		integrationRepo,
		tokenService,
		gateway,
		agentCache,
		cfg.Frontend.BaseURL,
		cfg.Agent.PrewarmOnLogin,
		db,
	)

	chatFlow := businessflow.NewChatFlow(
		chatRepo,
		integrationRepo,
		agentCache,
		cfg.Agent.HistoryWindow,
		db,
	)

	dashboardFlow := businessflow.NewDashboardFlow(
		profileRepo,
		integrationRepo,
		gateway,
		llmClient,
		db,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authFlow)
	businessHandler := handlers.NewBusinessHandler(profileFlow)
	integrationHandler := handlers.NewIntegrationHandler(integrationFlow)
	oauthHandler := handlers.NewOAuthHandler(oauthFlow, integrationFlow)
	chatHandler := handlers.NewChatHandler(chatFlow)
	dashboardHandler := handlers.NewDashboardHandler(dashboardFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		authHandler,
		businessHandler,
		integrationHandler,
		oauthHandler,
		chatHandler,
		dashboardHandler,
		authMiddleware,
	)

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

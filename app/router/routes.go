// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/adgenius-ai/adgenius/app/dto"
	"github.com/adgenius-ai/adgenius/app/handlers"
	"github.com/adgenius-ai/adgenius/app/middleware"
	"github.com/adgenius-ai/adgenius/config"
	"github.com/adgenius-ai/adgenius/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app                *fiber.App
	cfg                *config.ProductionConfig
	authHandler        *handlers.AuthHandler
	businessHandler    *handlers.BusinessHandler
	integrationHandler *handlers.IntegrationHandler
	oauthHandler       *handlers.OAuthHandler
	chatHandler        *handlers.ChatHandler
	dashboardHandler   *handlers.DashboardHandler
	authMiddleware     *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	authHandler *handlers.AuthHandler,
	businessHandler *handlers.BusinessHandler,
	integrationHandler *handlers.IntegrationHandler,
	oauthHandler *handlers.OAuthHandler,
	chatHandler *handlers.ChatHandler,
	dashboardHandler *handlers.DashboardHandler,
	authMiddleware *middleware.AuthMiddleware,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "AdGenius API",
		ServerHeader: "AdGenius",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ProxyHeader:  cfg.Server.ProxyHeader,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:                app,
		cfg:                cfg,
		authHandler:        authHandler,
		businessHandler:    businessHandler,
		integrationHandler: integrationHandler,
		oauthHandler:       oauthHandler,
		chatHandler:        chatHandler,
		dashboardHandler:   dashboardHandler,
		authMiddleware:     authMiddleware,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// Root and operational routes (no rate limiting)
	r.app.Get("/", r.rootInfo)
	r.app.Get("/health", r.healthCheck)
	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api")

	// General rate limiting for all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.AuthRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))

	auth.Post("/signup", r.authHandler.Signup)
	auth.Post("/login", r.authHandler.Login)
	auth.Post("/refresh", r.authHandler.Refresh)
	auth.Get("/profile", r.authHandler.Profile, r.authMiddleware.Authenticate())

	// Meta OAuth handshake. Start and callback stay public: the browser
	// arrives at the callback without an Authorization header, identity is
	// carried in the signed state token instead.
	metaOAuth := api.Group("/meta/oauth")
	metaOAuth.Get("/start", r.oauthHandler.Start)
	metaOAuth.Get("/callback", r.oauthHandler.Callback)

	api.Get("/oauth/status", r.oauthHandler.Status, r.authMiddleware.Authenticate())

	// Business profile
	business := api.Group("/business", r.authMiddleware.Authenticate())
	business.Get("/", r.businessHandler.Get)
	business.Post("/", r.businessHandler.Upsert)

	// Connected ad accounts
	integrations := api.Group("/integrations", r.authMiddleware.Authenticate())
	integrations.Get("/meta/adaccounts", r.integrationHandler.ListAdAccounts)
	integrations.Post("/select-account", r.integrationHandler.SelectAccount)
	integrations.Post("/meta/refresh-accounts", r.integrationHandler.RefreshAccounts)
	integrations.Get("/meta/token", r.integrationHandler.MaskedToken)

	// Settings page
	settings := api.Group("/settings", r.authMiddleware.Authenticate())
	settings.Get("/meta/status", r.integrationHandler.SettingsStatus)
	settings.Post("/meta/disconnect", r.integrationHandler.Disconnect)
	settings.Get("/meta/oauth/start", r.oauthHandler.StartSettings)

	// Conversational agent
	chat := api.Group("/chat", r.authMiddleware.Authenticate())
	chat.Post("/", r.chatHandler.Chat)
	chat.Get("/history/:session_id", r.chatHandler.History)
	chat.Get("/sessions", r.chatHandler.Sessions)
	chat.Delete("/sessions/:session_id", r.chatHandler.DeleteSession)
	chat.Delete("/sessions", r.chatHandler.DeleteAllSessions)
	chat.Delete("/messages/:message_id", r.chatHandler.DeleteMessage)

	// Dashboard
	dashboard := api.Group("/dashboard", r.authMiddleware.Authenticate())
	dashboard.Get("/", r.dashboardHandler.Overview)
	dashboard.Get("/campaign/:id", r.dashboardHandler.CampaignDetail)
	dashboard.Get("/export", r.dashboardHandler.Export)
	dashboard.Post("/recommendations/:id/status", r.dashboardHandler.RecommendationStatus)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		XDNSPrefetchControl:   "off",
		XDownloadOptions:      "noopen",
		XPermittedCrossDomain: "none",
	}))

	// CORS middleware, origins come from FRONTEND_ORIGINS
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	// Compression middleware for performance
	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	// Structured request logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == r.cfg.Metrics.Path
		},
	}))

	// Prometheus request metrics
	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Root endpoint, mirrors the health payload so load balancers hitting / get a
// cheap answer.
func (r *FiberRouter) rootInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "adgenius-api",
		"status":  "ok",
	})
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "adgenius-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: &dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: &dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: &dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

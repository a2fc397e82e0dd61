// Package router assembles the gin engine for the chat backend.
package router

import (
	"net/http"
	"slices"
	"time"

	"storefront-support/backend/internal/api"
	"storefront-support/backend/internal/knowledge"
	"storefront-support/backend/pkg/config"
	"storefront-support/backend/pkg/di"
	"storefront-support/backend/pkg/errors"
	"storefront-support/backend/pkg/logger"
	"storefront-support/backend/pkg/middleware"
	"storefront-support/backend/pkg/validator"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine      *gin.Engine
	Container   *di.Container
	Logger      *logger.Logger
	Config      *config.Config
	RateLimiter *middleware.RateLimiter
	Origins     *middleware.OriginPolicy
	// Validator is nil when no OpenAPI schema is configured
	Validator *validator.OpenAPIValidator
}

// New creates the engine and installs the middleware chain. Request
// validation is installed here so it covers every route registered later.
func New(container *di.Container) *Router {
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.Tracing())

	origins := middleware.NewOriginPolicy(slices.Concat(cfg.Security.AllowedOrigins, []string{cfg.Security.FrontendURL})...)
	engine.Use(middleware.CORS(origins))
	engine.Use(middleware.BodyLimit(cfg.Security.MaxBodySize))

	limits := middleware.DefaultRateLimiterOptions()
	limits.Limit = rate.Limit(cfg.Security.RateLimit)
	limits.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(container.Logger, limits)
	engine.Use(rateLimiter.Middleware())

	r := &Router{
		Engine:      engine,
		Container:   container,
		Logger:      container.Logger,
		Config:      cfg,
		RateLimiter: rateLimiter,
		Origins:     origins,
	}
	if cfg.OpenAPI.SchemaPath != "" {
		r.AddOpenAPIValidation(cfg.OpenAPI.SchemaPath)
	}
	return r
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.GET("/", r.rootHandler())
	r.Engine.GET("/metrics", gin.WrapH(r.Container.Metrics.Handler()))

	chatController := api.NewChatController(r.Container.ChatService, r.Container.Health, api.ChatControllerOptions{
		MaxMessageLength: r.Config.Chat.MaxMessageLength,
		MaxBodySize:      r.Config.Security.MaxBodySize,
		OriginAllowed:    r.Origins.Allowed,
	})
	chatController.RegisterRoutes(r.Engine)

	r.Engine.NoRoute(errors.NotFoundHandler())
}

// rootHandler describes the service and its endpoints
func (r *Router) rootHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    knowledge.StoreName + " AI Support Agent",
			"version": r.Config.Server.Version,
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"endpoints": gin.H{
				"health":    "GET /chat/health",
				"start":     "POST /chat/start",
				"message":   "POST /chat/message",
				"history":   "GET /chat/history/:sessionId",
				"websocket": "GET /chat/ws",
				"metrics":   "GET /metrics",
			},
		})
	}
}

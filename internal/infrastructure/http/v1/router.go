// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"buildledger/internal/app"
	"buildledger/internal/core/idempotency"
	"buildledger/internal/infrastructure/http/v1/dto"
	"buildledger/internal/infrastructure/http/v1/handlers"
	"buildledger/internal/infrastructure/http/v1/middleware"
	"buildledger/internal/infrastructure/realtime"
	"buildledger/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Services are the domain entry points behind every route.
	Services *app.Services

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Idempotency stores replayable responses; nil disables the middleware.
	Idempotency idempotency.Store

	// Limiter throttles /api/v1; nil disables rate limiting.
	Limiter *limiter.Limiter

	// CORSOrigins lists allowed browser origins. "*" allows any.
	CORSOrigins []string

	// Hub serves /ws; nil disables live notifications.
	Hub *realtime.Hub

	// Checks are run by /health/ready.
	Checks map[string]handlers.Check

	// Debug switches gin to debug mode.
	Debug bool
}

type routeRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	dto.RegisterValidators()

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(corsMiddleware(cfg.CORSOrigins))

	healthHandler := handlers.NewHealthHandler(cfg.Checks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	if cfg.Hub != nil {
		router.GET("/ws", cfg.Hub.ServeWs(cfg.JWTValidator))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Limiter != nil {
		v1.Use(middleware.RateLimit(cfg.Limiter))
	}
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	svc := cfg.Services
	for _, r := range []routeRegistrar{
		handlers.NewSiteHandler(base, svc.Sites),
		handlers.NewCompanyHandler(base, svc.Company),
		handlers.NewContractorHandler(base, svc.Contractors),
		handlers.NewStockHandler(base, svc.Stock),
		handlers.NewWageHandler(base, svc.Wages),
		handlers.NewProcurementHandler(base, svc.Procurement),
		handlers.NewNotificationHandler(base, svc.Notifications),
		handlers.NewActivityHandler(base, svc.Activity),
	} {
		r.RegisterRoutes(v1)
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderIdempotencyKey, "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "X-Trace-ID", "Idempotent-Replayed", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
		cc.AllowCredentials = true
	}
	return cors.New(cc)
}

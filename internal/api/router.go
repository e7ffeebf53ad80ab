// Package api provides the HTTP API for the push relay.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/topicrelay/topicrelay/internal/api/handler"
	"github.com/topicrelay/topicrelay/internal/api/middleware"
	"github.com/topicrelay/topicrelay/internal/auth"
	"github.com/topicrelay/topicrelay/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version             string
	BuildTime           string
	Logger              zerolog.Logger
	ServiceName         string
	Metrics             *middleware.Metrics
	NotificationService handler.Dispatcher
	Registry            *resilience.Registry

	// TokenVerifier enables bearer auth on notification routes when set.
	TokenVerifier *auth.TokenVerifier

	AllowedOrigins     []string
	RateLimitPerMinute int
	RequireTLS         bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "topicrelay"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry)
	notificationHandler := handler.NewNotificationHandler(cfg.NotificationService, cfg.Logger)

	r.Route("/ops", func(r chi.Router) {
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/ready", opsHandler.ReadinessCheck)
		r.Get("/status", opsHandler.SystemStatus)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(cfg.RateLimitPerMinute))
		r.Use(middleware.Auth(cfg.TokenVerifier))
		r.Use(middleware.LimitBody)
		r.Post("/", notificationHandler.SendNotification)
		r.Post("/subscribe", notificationHandler.Subscribe)
		r.Post("/unsubscribe", notificationHandler.Unsubscribe)
	})

	return r
}

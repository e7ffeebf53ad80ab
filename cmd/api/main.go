// Package main provides the entrypoint for the topicrelay push notification API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/topicrelay/topicrelay/internal/api"
	"github.com/topicrelay/topicrelay/internal/api/middleware"
	"github.com/topicrelay/topicrelay/internal/auth"
	"github.com/topicrelay/topicrelay/internal/config"
	"github.com/topicrelay/topicrelay/internal/notification"
	"github.com/topicrelay/topicrelay/internal/provider/fcm"
	"github.com/topicrelay/topicrelay/internal/provider/resilience"
	"github.com/topicrelay/topicrelay/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "topicrelay"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = log.Level(cfg.LogLevel)

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting topicrelay API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	// The service keeps serving when initialization fails; notification
	// requests then answer 500 and /ops/ready reports 503.
	client := fcm.NewClient(fcm.ClientConfig{
		Credentials: cfg.Credentials,
		Logger:      log,
	})
	if err := client.Init(ctx); err != nil {
		log.Error().Err(err).Msg("failed to initialize push provider")
	}

	var breaker *resilience.CircuitBreakerConfig
	if cfg.BreakerEnabled {
		cbCfg := resilience.DefaultCircuitBreakerConfig(fcm.ProviderName)
		cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		}
		breaker = &cbCfg
		log.Info().Msg("push provider circuit breaker enabled")
	}

	registry := resilience.NewRegistry()
	guard := resilience.NewGuard(resilience.GuardConfig{
		Provider:       client,
		Registry:       registry,
		CircuitBreaker: breaker,
	})

	notificationService := notification.NewService(notification.ServiceConfig{
		Provider:                guard,
		Logger:                  log,
		Metrics:                 providerMetrics,
		SkipSendTopicValidation: !cfg.ValidateSendTopic,
	})

	var verifier *auth.TokenVerifier
	if cfg.AuthEnabled() {
		verifier = auth.NewTokenVerifier(auth.TokenConfig{
			SigningKey: cfg.JWTSigningKey,
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
		})
		log.Info().Msg("bearer token auth enabled for notification routes")
	} else {
		log.Warn().Msg("API_JWT_SIGNING_KEY not set - notification routes are unauthenticated")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:             Version,
		BuildTime:           BuildTime,
		Logger:              log,
		ServiceName:         serviceName,
		Metrics:             httpMetrics,
		NotificationService: notificationService,
		Registry:            registry,
		TokenVerifier:       verifier,
		AllowedOrigins:      cfg.AllowedOrigins,
		RateLimitPerMinute:  cfg.RateLimitPerMinute,
		RequireTLS:          cfg.RequireTLS,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

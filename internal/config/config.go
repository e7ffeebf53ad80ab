// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/topicrelay/topicrelay/internal/provider/fcm"
)

// DefaultAllowedOrigins are the CORS origins used when none are configured.
var DefaultAllowedOrigins = []string{"http://localhost:3030", "https://dev.ezelogs.com"}

// Config holds the service configuration.
type Config struct {
	Port         string
	Environment  string
	LogLevel     zerolog.Level
	OTelEnabled  bool
	OTLPEndpoint string

	AllowedOrigins     []string
	RateLimitPerMinute int
	RequireTLS         bool

	// JWT bearer auth is enabled when JWTSigningKey is set.
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	ValidateSendTopic bool
	BreakerEnabled    bool

	Credentials fcm.CredentialSource
}

// AuthEnabled reports whether notification routes require a bearer token.
func (c Config) AuthEnabled() bool {
	return c.JWTSigningKey != ""
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		return Config{}, errors.New("LOG_LEVEL is not a valid level")
	}

	cfg := Config{
		Port:               getEnv("APP_PORT", getEnv("PORT", "8080")),
		Environment:        getEnv("APP_ENV", "development"),
		LogLevel:           level,
		OTelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", DefaultAllowedOrigins),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		RequireTLS:         getEnvBool("REQUIRE_TLS", false),
		JWTSigningKey:      strings.TrimSpace(os.Getenv("API_JWT_SIGNING_KEY")),
		JWTIssuer:          strings.TrimSpace(os.Getenv("API_JWT_ISSUER")),
		JWTAudience:        strings.TrimSpace(os.Getenv("API_JWT_AUDIENCE")),
		ValidateSendTopic:  getEnvBool("VALIDATE_SEND_TOPIC", true),
		BreakerEnabled:     getEnvBool("PUSH_BREAKER_ENABLED", false),
		Credentials:        fcm.CredentialSourceFromEnv(),
	}

	if cfg.RateLimitPerMinute < 0 {
		return Config{}, errors.New("RATE_LIMIT_PER_MINUTE must not be negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

package config_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topicrelay/topicrelay/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_PORT", "PORT", "APP_ENV", "LOG_LEVEL", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"CORS_ALLOWED_ORIGINS", "RATE_LIMIT_PER_MINUTE", "API_JWT_SIGNING_KEY", "API_JWT_ISSUER",
		"API_JWT_AUDIENCE", "VALIDATE_SEND_TOPIC", "PUSH_BREAKER_ENABLED", "REQUIRE_TLS",
		"FIREBASE_CREDENTIALS_FILE", "FIREBASE_CREDENTIALS_JSON",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, config.DefaultAllowedOrigins, cfg.AllowedOrigins)
	assert.Equal(t, 100, cfg.RateLimitPerMinute)
	assert.True(t, cfg.ValidateSendTopic)
	assert.False(t, cfg.BreakerEnabled)
	assert.False(t, cfg.RequireTLS)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "20")
	t.Setenv("API_JWT_SIGNING_KEY", "secret")
	t.Setenv("VALIDATE_SEND_TOPIC", "false")
	t.Setenv("PUSH_BREAKER_ENABLED", "true")
	t.Setenv("REQUIRE_TLS", "true")
	t.Setenv("FIREBASE_CREDENTIALS_FILE", "/etc/relay/sa.json")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 20, cfg.RateLimitPerMinute)
	assert.True(t, cfg.AuthEnabled())
	assert.False(t, cfg.ValidateSendTopic)
	assert.True(t, cfg.BreakerEnabled)
	assert.True(t, cfg.RequireTLS)
	assert.Equal(t, "/etc/relay/sa.json", cfg.Credentials.File)
}

func TestLoad_AppPortWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("APP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "loud")
	_, err := config.Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("RATE_LIMIT_PER_MINUTE", "-1")
	_, err = config.Load()
	assert.Error(t, err)
}

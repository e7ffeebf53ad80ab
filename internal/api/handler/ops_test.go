package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topicrelay/topicrelay/internal/api/handler"
	"github.com/topicrelay/topicrelay/internal/api/models"
	"github.com/topicrelay/topicrelay/internal/provider/resilience"
)

type fakeSource struct {
	ready bool
	state gobreaker.State
}

func (f *fakeSource) Ready() bool                            { return f.ready }
func (f *fakeSource) CircuitBreakerState() gobreaker.State   { return f.state }
func (f *fakeSource) CircuitBreakerCounts() gobreaker.Counts { return gobreaker.Counts{} }

func TestHealthCheck(t *testing.T) {
	h := handler.NewOpsHandler("1.2.3", "2026-01-01", nil)

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/ops/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "1.2.3", body["details"].(map[string]any)["version"])
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name   string
		source *fakeSource
		want   int
	}{
		{"not registered", nil, http.StatusServiceUnavailable},
		{"not initialized", &fakeSource{ready: false}, http.StatusServiceUnavailable},
		{"circuit open", &fakeSource{ready: true, state: gobreaker.StateOpen}, http.StatusServiceUnavailable},
		{"ready", &fakeSource{ready: true, state: gobreaker.StateClosed}, http.StatusOK},
		{"half open", &fakeSource{ready: true, state: gobreaker.StateHalfOpen}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := resilience.NewRegistry()
			if tt.source != nil {
				registry.Register("fcm", tt.source)
			}
			h := handler.NewOpsHandler("dev", "", registry)

			rec := httptest.NewRecorder()
			h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/ops/ready", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSystemStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("fcm", &fakeSource{ready: true, state: gobreaker.StateHalfOpen})
	registry.RecordFailure("fcm", errors.New("unavailable"))

	h := handler.NewOpsHandler("dev", "", registry)
	rec := httptest.NewRecorder()
	h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/ops/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    models.HealthStatus `json:"status"`
		Providers []struct {
			Provider      string              `json:"provider"`
			Status        models.HealthStatus `json:"status"`
			Initialized   bool                `json:"initialized"`
			CircuitState  string              `json:"circuitState"`
			LastFailureAt *string             `json:"lastFailureAt"`
			LastSuccessAt *string             `json:"lastSuccessAt"`
			Message       *string             `json:"message"`
		} `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, models.HealthStatusDegraded, body.Status)
	require.Len(t, body.Providers, 1)
	p := body.Providers[0]
	assert.Equal(t, "fcm", p.Provider)
	assert.True(t, p.Initialized)
	assert.Equal(t, "half-open", p.CircuitState)
	assert.NotNil(t, p.LastFailureAt)
	assert.Nil(t, p.LastSuccessAt)
	require.NotNil(t, p.Message)
	assert.Equal(t, "unavailable", *p.Message)
}

func TestSystemStatus_NotInitializedIsDown(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("fcm", &fakeSource{})

	h := handler.NewOpsHandler("dev", "", registry)
	rec := httptest.NewRecorder()
	h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/ops/status", nil))

	assert.Contains(t, rec.Body.String(), `"status":"DOWN"`)
	assert.Contains(t, rec.Body.String(), `"initialized":false`)
}

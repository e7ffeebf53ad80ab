// Package handler provides HTTP handlers for the relay API.
package handler

import (
	"net/http"
	"time"

	"github.com/topicrelay/topicrelay/internal/api/models"
	"github.com/topicrelay/topicrelay/internal/api/response"
	"github.com/topicrelay/topicrelay/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry) *OpsHandler {
	if registry == nil {
		registry = resilience.NewRegistry()
	}
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
	}
}

// HealthCheck handles GET /ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /ops/ready - 503 until the push provider is
// initialized and its circuit is not open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	if !h.registry.AllReady() {
		health.Status = models.HealthStatusDown
		response.ServiceUnavailable(w, r, health)
		return
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /ops/status - push provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Providers: []models.ProviderStatus{},
	}

	for _, ph := range h.registry.GetAllHealth() {
		ps := models.ProviderStatus{
			Provider:      ph.Name,
			Status:        providerStatus(ph),
			Initialized:   ph.Ready,
			CircuitState:  ph.CircuitState.String(),
			LastSuccessAt: timestampPtr(ph.LastSuccessAt),
			LastFailureAt: timestampPtr(ph.LastFailureAt),
		}
		if ph.LastError != "" {
			msg := ph.LastError
			ps.Message = &msg
		}
		if ps.Status != models.HealthStatusOK && status.Status != models.HealthStatusDown {
			status.Status = ps.Status
		}
		status.Providers = append(status.Providers, ps)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(ph *resilience.ProviderHealth) models.HealthStatus {
	switch {
	case ph.IsUnhealthy():
		return models.HealthStatusDown
	case ph.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(*t)
	return &ts
}

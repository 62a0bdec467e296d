// Package handler provides HTTP handlers for the demand API.
package handler

import (
	"net/http"
	"time"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/models"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/api/response"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "ML Demand Prediction Service"

// ModelStatus reports whether a model is loaded.
type ModelStatus interface {
	Loaded() bool
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version string
	model   ModelStatus
	clock   func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version string, model ModelStatus) *OpsHandler {
	return &OpsHandler{
		version: version,
		model:   model,
		clock:   time.Now,
	}
}

// HealthCheck handles GET /health. It answers 200 even without a model so
// that orchestrators keep the process running in degraded mode.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status:      models.HealthStatusUp,
		Service:     ServiceName,
		Version:     h.version,
		ModelLoaded: h.model != nil && h.model.Loaded(),
		Timestamp:   models.Timestamp(h.clock()),
	}
	response.JSON(w, r, http.StatusOK, health)
}

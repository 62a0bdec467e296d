package models

// HealthStatusUp is reported by the health endpoint whenever the process is serving.
const HealthStatusUp = "UP"

// Health is the body of GET /health.
type Health struct {
	Status      string    `json:"status"`
	Service     string    `json:"service"`
	Version     string    `json:"version,omitempty"`
	ModelLoaded bool      `json:"model_loaded"`
	Timestamp   Timestamp `json:"timestamp"`
}

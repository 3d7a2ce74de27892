package handler

import (
	"net/http"
	"time"

	"github.com/rob0403/LiveVotingRW/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{container: container}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Database  string    `json:"database"`
	Redis     string    `json:"redis"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.container.GetLogger()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   "livevoting",
		Database:  "ok",
		Redis:     "ok",
	}
	status := http.StatusOK

	if db := h.container.GetDB(); db != nil {
		if err := db.Health(ctx); err != nil {
			log.WithError(err).Warn("Database health check failed")
			response.Status = "degraded"
			response.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	if redisClient := h.container.GetRedisClient(); redisClient != nil {
		if err := redisClient.Health(ctx); err != nil {
			log.WithError(err).Warn("Redis health check failed")
			response.Status = "degraded"
			response.Redis = "unreachable"
		}
	} else {
		response.Redis = "disabled"
	}

	respondJSON(w, status, response)
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"churncli/internal/services"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	service *services.HealthService
	logger  *slog.Logger
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(service *services.HealthService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		logger:  logger.With(slog.String("component", "health_handler")),
	}
}

// HealthCheck handles GET /healthz.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Check(r.Context()))
}

package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "churncli/internal/errors"
	"churncli/internal/services"
)

// OperationsHandler controls pipeline runs over HTTP.
type OperationsHandler struct {
	service *services.OperationsService
	logger  *slog.Logger
}

// NewOperationsHandler creates the operations handler.
func NewOperationsHandler(service *services.OperationsService, logger *slog.Logger) *OperationsHandler {
	return &OperationsHandler{
		service: service,
		logger:  logger.With(slog.String("component", "operations_handler")),
	}
}

// Routes returns the pipeline run routes.
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.Trigger)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	return r
}

// Trigger handles POST /api/operations. The run executes in the
// background; progress streams over the websocket.
func (h *OperationsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	summary, started := h.service.Trigger(r.Context())
	if !started {
		render.Render(w, r, apierrors.NewErrorResponse(
			apierrors.NewWithDetails(http.StatusConflict, "RUN_IN_PROGRESS",
				"A pipeline run is already in progress", nil)))
		return
	}

	h.logger.InfoContext(r.Context(), "pipeline run triggered", slog.String("run_id", summary.ID))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, summary)
}

// List handles GET /api/operations.
func (h *OperationsHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.List())
}

// Get handles GET /api/operations/{id}.
func (h *OperationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	summary, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrOperationNotFound))
			return
		}
		h.logger.ErrorContext(r.Context(), "run lookup failed",
			slog.String("run_id", id), slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInternalServer))
		return
	}
	render.JSON(w, r, summary)
}

package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "churncli/internal/errors"
	"churncli/internal/services"
	"churncli/pkg/contracts/domain"
)

// DataHandler serves the persisted feature table to the dashboard.
type DataHandler struct {
	service *services.DataService
	logger  *slog.Logger
}

// NewDataHandler creates the data handler.
func NewDataHandler(service *services.DataService, logger *slog.Logger) *DataHandler {
	return &DataHandler{
		service: service,
		logger:  logger.With(slog.String("component", "data_handler")),
	}
}

// Routes returns the feature table routes.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.GetFeatures)
	r.Get("/stats", h.GetFeatureStats)
	return r
}

// FeaturesResponse wraps the feature table rows.
type FeaturesResponse struct {
	Columns   []string                  `json:"columns"`
	Customers []domain.CustomerFeatures `json:"customers"`
	Count     int                       `json:"count"`
}

// GetFeatures handles GET /api/features.
func (h *DataHandler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Features(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, FeaturesResponse{
		Columns:   domain.FeatureColumns(),
		Customers: rows,
		Count:     len(rows),
	})
}

// GetFeatureStats handles GET /api/features/stats. The dashboard uses
// the result to bound its sliders.
func (h *DataHandler) GetFeatureStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.FeatureStats(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

func (h *DataHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNoFeatureTable) {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrFeaturesNotFound))
		return
	}
	h.logger.ErrorContext(r.Context(), "feature table read failed", slog.String("error", err.Error()))
	render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrFileSystem))
}

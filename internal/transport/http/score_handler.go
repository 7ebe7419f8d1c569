package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "churncli/internal/errors"
	"churncli/internal/scoring"
	"churncli/internal/services"
	"churncli/pkg/contracts/domain"
)

// ScoreRequest carries a feature vector for interactive scoring. Keys
// are the canonical feature names; extra keys are ignored, missing ones
// are rejected per call.
type ScoreRequest struct {
	Features map[string]float64 `json:"features" validate:"required,min=1"`
}

// Bind implements render.Binder.
func (req *ScoreRequest) Bind(r *http.Request) error {
	return nil
}

// ScoreResponse is the scoring result returned to the dashboard.
type ScoreResponse struct {
	services.ScoreResult
	Features []string `json:"features"`
}

// ScoreHandler serves interactive scoring requests.
type ScoreHandler struct {
	service  *services.ScoringService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewScoreHandler creates the score handler.
func NewScoreHandler(service *services.ScoringService, logger *slog.Logger) *ScoreHandler {
	return &ScoreHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "score_handler")),
	}
}

// Routes returns the scoring routes.
func (h *ScoreHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.Score)
	return r
}

// Score handles POST /api/score.
func (h *ScoreHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.InvalidRequestWithError(err)))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(
			apierrors.ErrValidation("features", "feature vector is required")))
		return
	}

	result, err := h.service.Score(r.Context(), domain.FeatureVector(req.Features))
	if err != nil {
		var shapeErr *scoring.FeatureShapeError
		if errors.As(err, &shapeErr) {
			h.logger.WarnContext(r.Context(), "score request rejected",
				slog.Any("missing_features", shapeErr.Missing))
			render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrFeatureShape(shapeErr.Missing)))
			return
		}
		h.logger.ErrorContext(r.Context(), "scoring failed", slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInternalServer))
		return
	}

	render.JSON(w, r, ScoreResponse{
		ScoreResult: result,
		Features:    domain.FeatureColumns(),
	})
}

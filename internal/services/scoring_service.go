// Package services holds the application services behind the HTTP
// transport: scoring, feature-table access, pipeline runs, and health.
package services

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"churncli/internal/scoring"
	"churncli/pkg/contracts/domain"
)

var scoresServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "churn_scores_served_total",
	Help: "Scoring calls served, by outcome.",
}, []string{"outcome"})

// ScoreResult is the outcome of one scoring call.
type ScoreResult struct {
	Probability     float64 `json:"probability"`
	Churner         bool    `json:"churner"`
	Threshold       float64 `json:"threshold"`
	ArtifactVersion string  `json:"artifact_version"`
}

// ScoringService scores feature vectors and applies the configured
// decision threshold. It is stateless per call; the underlying artifact
// is read-only shared state, so concurrent dashboard sessions need no
// coordination.
type ScoringService struct {
	scorer    *scoring.Scorer
	threshold float64
	logger    *slog.Logger
}

// NewScoringService creates the scoring service.
func NewScoringService(scorer *scoring.Scorer, threshold float64, logger *slog.Logger) *ScoringService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoringService{
		scorer:    scorer,
		threshold: threshold,
		logger:    logger.With(slog.String("component", "scoring_service")),
	}
}

// Score computes the churn probability for the vector. The vector may
// come from a persisted feature row or from interactive slider input;
// identical vectors always produce identical results.
func (s *ScoringService) Score(ctx context.Context, v domain.FeatureVector) (ScoreResult, error) {
	p, err := s.scorer.Score(v)
	if err != nil {
		scoresServed.WithLabelValues("rejected").Inc()
		return ScoreResult{}, err
	}

	scoresServed.WithLabelValues("ok").Inc()
	s.logger.DebugContext(ctx, "vector scored",
		slog.Float64("probability", p),
		slog.String("artifact_version", s.scorer.ArtifactVersion()))

	return ScoreResult{
		Probability:     p,
		Churner:         p >= s.threshold,
		Threshold:       s.threshold,
		ArtifactVersion: s.scorer.ArtifactVersion(),
	}, nil
}

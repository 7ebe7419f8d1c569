package scoring

import (
	"fmt"
	"strings"

	"churncli/pkg/contracts/domain"
)

// FeatureShapeError reports a scoring call with an incomplete feature
// vector. It is fatal for that call only and mutates no shared state.
type FeatureShapeError struct {
	Missing []string
}

func (e *FeatureShapeError) Error() string {
	return fmt.Sprintf("feature vector missing required features: %s", strings.Join(e.Missing, ", "))
}

// Scorer scores feature vectors against a loaded pipeline artifact. It
// holds the artifact as read-only shared state; Score never mutates it,
// so concurrent callers need no locking.
type Scorer struct {
	artifact Artifact
}

// NewScorer wraps a loaded artifact.
func NewScorer(artifact Artifact) *Scorer {
	return &Scorer{artifact: artifact}
}

// ArtifactVersion returns the version of the loaded artifact.
func (s *Scorer) ArtifactVersion() string {
	return s.artifact.Version()
}

// Score returns the churn probability in [0,1] for the vector. The
// vector may come from an aggregation run or be synthetically
// constructed from interactive input; both score identically. All eight
// canonical features are required; missing features fail with
// FeatureShapeError.
func (s *Scorer) Score(v domain.FeatureVector) (float64, error) {
	if missing := v.Missing(); len(missing) > 0 {
		return 0, &FeatureShapeError{Missing: missing}
	}

	values, ok := v.Values()
	if !ok {
		// Unreachable once Missing is empty; kept as a guard.
		return 0, &FeatureShapeError{Missing: domain.FeatureColumns()}
	}

	p := s.artifact.PredictProbability(s.artifact.Transform(values))
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p, nil
}

// ScoreRow scores a persisted feature row.
func (s *Scorer) ScoreRow(row domain.CustomerFeatures) (float64, error) {
	return s.Score(row.Vector())
}

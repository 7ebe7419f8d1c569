package scoring

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churncli/pkg/contracts/domain"
)

func writeArtifact(t *testing.T, content map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(content)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "artifact.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func logisticContent() map[string]interface{} {
	return map[string]interface{}{
		"version":  "2024-06-01-logreg",
		"kind":     "logistic",
		"features": domain.FeatureColumns(),
		"scaler": map[string]interface{}{
			"mean":  []float64{10, 100, 2, 0.5, 1, 3, 4, 20},
			"scale": []float64{5, 50, 1, 0.5, 1, 2, 2, 10},
		},
		"logistic": map[string]interface{}{
			"coefficients": []float64{0.1, -0.2, 0.3, -0.4, 0.5, -0.6, 0.7, 0.8},
			"intercept":    -0.25,
		},
	}
}

func fullVector(value float64) domain.FeatureVector {
	v := make(domain.FeatureVector)
	for _, name := range domain.FeatureColumns() {
		v[name] = value
	}
	return v
}

func TestLoadLogisticArtifact(t *testing.T) {
	path := writeArtifact(t, logisticContent())
	artifact, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01-logreg", artifact.Version())
}

func TestLogisticScoreMatchesHandComputation(t *testing.T) {
	path := writeArtifact(t, logisticContent())
	artifact, err := LoadArtifact(path)
	require.NoError(t, err)
	scorer := NewScorer(artifact)

	// Vector equal to the scaler means transforms to all zeros, leaving
	// only the intercept: sigmoid(-0.25).
	v := domain.FeatureVector{
		"avg_spend":       10,
		"total_spend":     100,
		"avg_items":       2,
		"marketing_optin": 0.5,
		"n_discounts":     1,
		"avg_discount":    3,
		"frequency":       4,
		"avg_gap_days":    20,
	}
	p, err := scorer.Score(v)
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(0.25)), p, 1e-12)
}

func TestScoreIsPureAndDeterministic(t *testing.T) {
	path := writeArtifact(t, logisticContent())
	artifact, err := LoadArtifact(path)
	require.NoError(t, err)
	scorer := NewScorer(artifact)

	v := fullVector(7)
	first, err := scorer.Score(v)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		p, err := scorer.Score(v)
		require.NoError(t, err)
		assert.Equal(t, first, p)
	}
}

func TestScoreMissingFeatures(t *testing.T) {
	path := writeArtifact(t, logisticContent())
	artifact, err := LoadArtifact(path)
	require.NoError(t, err)
	scorer := NewScorer(artifact)

	v := fullVector(1)
	delete(v, domain.FeatureFrequency)
	delete(v, domain.FeatureAvgGapDays)

	_, err = scorer.Score(v)
	var shapeErr *FeatureShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, []string{domain.FeatureFrequency, domain.FeatureAvgGapDays}, shapeErr.Missing)
}

func TestScoreProbabilityBounds(t *testing.T) {
	path := writeArtifact(t, logisticContent())
	artifact, err := LoadArtifact(path)
	require.NoError(t, err)
	scorer := NewScorer(artifact)

	for _, value := range []float64{-1e6, 0, 1e6} {
		p, err := scorer.Score(fullVector(value))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestGBTreeArtifact(t *testing.T) {
	// One tree: frequency < 3 goes left to margin +2, otherwise -2.
	content := map[string]interface{}{
		"version":  "2024-06-01-xgb",
		"kind":     "gbtree",
		"features": domain.FeatureColumns(),
		"gbtree": map[string]interface{}{
			"base_margin": 0.0,
			"trees": [][]map[string]interface{}{
				{
					{"leaf": false, "feature": 6, "threshold": 3, "left": 1, "right": 2},
					{"leaf": true, "value": 2.0},
					{"leaf": true, "value": -2.0},
				},
			},
		},
	}
	artifact, err := LoadArtifact(writeArtifact(t, content))
	require.NoError(t, err)
	scorer := NewScorer(artifact)

	lowFreq := fullVector(1)
	lowFreq[domain.FeatureFrequency] = 1
	p, err := scorer.Score(lowFreq)
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-2)), p, 1e-12)

	highFreq := fullVector(1)
	highFreq[domain.FeatureFrequency] = 10
	p, err = scorer.Score(highFreq)
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(2)), p, 1e-12)
}

func TestLoadArtifactValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{
			name: "wrong feature order",
			mutate: func(c map[string]interface{}) {
				cols := domain.FeatureColumns()
				cols[0], cols[1] = cols[1], cols[0]
				c["features"] = cols
			},
		},
		{
			name: "missing feature",
			mutate: func(c map[string]interface{}) {
				c["features"] = domain.FeatureColumns()[:7]
			},
		},
		{
			name: "unknown kind",
			mutate: func(c map[string]interface{}) {
				c["kind"] = "random_forest"
			},
		},
		{
			name: "coefficient length mismatch",
			mutate: func(c map[string]interface{}) {
				c["logistic"] = map[string]interface{}{
					"coefficients": []float64{1, 2, 3},
					"intercept":    0,
				}
			},
		},
		{
			name: "logistic without scaler",
			mutate: func(c map[string]interface{}) {
				delete(c, "scaler")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := logisticContent()
			tt.mutate(content)
			_, err := LoadArtifact(writeArtifact(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadArtifactRejectsBadTree(t *testing.T) {
	tests := []struct {
		name string
		tree []map[string]interface{}
	}{
		{
			name: "feature index out of range",
			tree: []map[string]interface{}{
				{"leaf": false, "feature": 99, "threshold": 1, "left": 1, "right": 1},
				{"leaf": true, "value": 0.5},
			},
		},
		{
			name: "child index out of range",
			tree: []map[string]interface{}{
				{"leaf": false, "feature": 0, "threshold": 1, "left": 1, "right": 5},
				{"leaf": true, "value": 0.5},
			},
		},
		{
			name: "node routes to itself",
			tree: []map[string]interface{}{
				{"leaf": false, "feature": 0, "threshold": 100, "left": 0, "right": 1},
				{"leaf": true, "value": 0.5},
			},
		},
		{
			name: "node routes back to an ancestor",
			tree: []map[string]interface{}{
				{"leaf": false, "feature": 0, "threshold": 1, "left": 1, "right": 2},
				{"leaf": false, "feature": 1, "threshold": 1, "left": 0, "right": 2},
				{"leaf": true, "value": 0.5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := map[string]interface{}{
				"version":  "v",
				"kind":     "gbtree",
				"features": domain.FeatureColumns(),
				"gbtree": map[string]interface{}{
					"base_margin": 0.0,
					"trees":       [][]map[string]interface{}{tt.tree},
				},
			}
			_, err := LoadArtifact(writeArtifact(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadArtifactMissingFile(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestZeroScaleFeatureContributesNothing(t *testing.T) {
	content := logisticContent()
	content["scaler"] = map[string]interface{}{
		"mean":  []float64{10, 100, 2, 0.5, 1, 3, 4, 20},
		"scale": []float64{5, 50, 1, 0, 1, 2, 2, 10}, // marketing_optin has zero variance
	}
	artifact, err := LoadArtifact(writeArtifact(t, content))
	require.NoError(t, err)
	scorer := NewScorer(artifact)

	a := fullVector(3)
	a[domain.FeatureMarketingOptin] = 0
	b := fullVector(3)
	b[domain.FeatureMarketingOptin] = 1

	pa, err := scorer.Score(a)
	require.NoError(t, err)
	pb, err := scorer.Score(b)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

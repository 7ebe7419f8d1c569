// Package scoring applies a pre-fitted pipeline artifact to customer
// feature vectors. The artifact is produced by an external training
// process, loaded once at startup, and treated as read-only for the
// process lifetime; scoring itself is a pure function of (artifact,
// vector) and safe for concurrent callers.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"churncli/pkg/contracts/domain"
)

// Artifact is the abstract capability the scoring interface depends on:
// a fitted feature transformation plus a fitted classifier. Callers
// never see the concrete model family behind it.
type Artifact interface {
	// Version identifies the training run that produced the artifact.
	Version() string
	// Transform applies the fitted feature transformation to a vector in
	// canonical feature order.
	Transform(values []float64) []float64
	// PredictProbability returns the churn probability for a transformed
	// vector. Deterministic: no randomness at inference time.
	PredictProbability(transformed []float64) float64
}

// Artifact kinds supported by the JSON serialization.
const (
	KindLogistic = "logistic"
	KindGBTree   = "gbtree"
)

// artifactFile is the on-disk JSON layout of a pipeline artifact.
type artifactFile struct {
	Version  string   `json:"version"`
	Kind     string   `json:"kind"`
	Features []string `json:"features"`
	Scaler   *struct {
		Mean  []float64 `json:"mean"`
		Scale []float64 `json:"scale"`
	} `json:"scaler,omitempty"`
	Logistic *struct {
		Coefficients []float64 `json:"coefficients"`
		Intercept    float64   `json:"intercept"`
	} `json:"logistic,omitempty"`
	GBTree *struct {
		BaseMargin float64    `json:"base_margin"`
		Trees      [][]treeNode `json:"trees"`
	} `json:"gbtree,omitempty"`
}

// treeNode is one node of a boosted decision tree, in the flattened
// index form the training export writes. Leaves carry the margin
// contribution; internal nodes route on value < threshold.
type treeNode struct {
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

// LoadArtifact reads and validates a serialized pipeline artifact. The
// artifact's feature list must match the canonical feature columns
// exactly: a mismatch means the artifact was trained against a
// different schema and must not be served.
func LoadArtifact(path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}

	var af artifactFile
	if err := json.Unmarshal(data, &af); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}

	expected := domain.FeatureColumns()
	if len(af.Features) != len(expected) {
		return nil, fmt.Errorf("artifact %s: expected %d features, got %d", path, len(expected), len(af.Features))
	}
	for i, name := range expected {
		if af.Features[i] != name {
			return nil, fmt.Errorf("artifact %s: feature %d is %q, want %q", path, i, af.Features[i], name)
		}
	}

	switch af.Kind {
	case KindLogistic:
		if af.Scaler == nil || af.Logistic == nil {
			return nil, fmt.Errorf("artifact %s: logistic artifact missing scaler or coefficients", path)
		}
		if len(af.Scaler.Mean) != len(expected) || len(af.Scaler.Scale) != len(expected) ||
			len(af.Logistic.Coefficients) != len(expected) {
			return nil, fmt.Errorf("artifact %s: parameter lengths do not match feature count", path)
		}
		return &logisticArtifact{
			version:      af.Version,
			mean:         af.Scaler.Mean,
			scale:        af.Scaler.Scale,
			coefficients: af.Logistic.Coefficients,
			intercept:    af.Logistic.Intercept,
		}, nil
	case KindGBTree:
		if af.GBTree == nil || len(af.GBTree.Trees) == 0 {
			return nil, fmt.Errorf("artifact %s: gbtree artifact has no trees", path)
		}
		for ti, tree := range af.GBTree.Trees {
			if err := validateTree(tree, len(expected)); err != nil {
				return nil, fmt.Errorf("artifact %s: tree %d: %w", path, ti, err)
			}
		}
		return &gbtreeArtifact{
			version:    af.Version,
			baseMargin: af.GBTree.BaseMargin,
			trees:      af.GBTree.Trees,
		}, nil
	default:
		return nil, fmt.Errorf("artifact %s: unknown kind %q", path, af.Kind)
	}
}

func validateTree(tree []treeNode, featureCount int) error {
	if len(tree) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range tree {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= featureCount {
			return fmt.Errorf("node %d references feature %d", i, n.Feature)
		}
		// Flattened exports write children after their parent. Requiring
		// a strictly increasing index keeps evalTree free of cycles.
		if n.Left <= i || n.Left >= len(tree) || n.Right <= i || n.Right >= len(tree) {
			return fmt.Errorf("node %d has out-of-range or backward children", i)
		}
	}
	return nil
}

// logisticArtifact is a standard-scaler + logistic-regression pipeline.
type logisticArtifact struct {
	version      string
	mean         []float64
	scale        []float64
	coefficients []float64
	intercept    float64
}

func (a *logisticArtifact) Version() string { return a.version }

func (a *logisticArtifact) Transform(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		s := a.scale[i]
		if s == 0 {
			// A zero-variance feature contributes nothing after scaling.
			out[i] = 0
			continue
		}
		out[i] = (v - a.mean[i]) / s
	}
	return out
}

func (a *logisticArtifact) PredictProbability(transformed []float64) float64 {
	z := a.intercept
	for i, v := range transformed {
		z += a.coefficients[i] * v
	}
	return sigmoid(z)
}

// gbtreeArtifact is a gradient-boosted tree ensemble. Trees operate on
// raw feature values, so Transform is the identity.
type gbtreeArtifact struct {
	version    string
	baseMargin float64
	trees      [][]treeNode
}

func (a *gbtreeArtifact) Version() string { return a.version }

func (a *gbtreeArtifact) Transform(values []float64) []float64 {
	return values
}

func (a *gbtreeArtifact) PredictProbability(transformed []float64) float64 {
	margin := a.baseMargin
	for _, tree := range a.trees {
		margin += evalTree(tree, transformed)
	}
	return sigmoid(margin)
}

func evalTree(tree []treeNode, values []float64) float64 {
	i := 0
	for {
		n := tree[i]
		if n.Leaf {
			return n.Value
		}
		if values[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

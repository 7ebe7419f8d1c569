package services

import "errors"

// ErrNoFeatureTable indicates the pipeline has not produced a feature
// table yet. The dashboard shows an empty state instead of failing.
var ErrNoFeatureTable = errors.New("feature table has not been generated")

// ErrRunNotFound indicates an unknown pipeline run ID.
var ErrRunNotFound = errors.New("pipeline run not found")

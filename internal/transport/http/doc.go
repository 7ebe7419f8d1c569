// Package http contains the chi HTTP handlers for the scoring
// dashboard API: interactive scoring, feature table access, pipeline
// run control, and health.
package http

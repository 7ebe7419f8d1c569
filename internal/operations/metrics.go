package operations

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "churn_pipeline_runs_completed_total",
		Help: "Number of pipeline runs that completed successfully.",
	})
	runsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "churn_pipeline_runs_failed_total",
		Help: "Number of pipeline runs that failed.",
	})
	rowsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "churn_pipeline_rows_dropped_total",
		Help: "Line items dropped during cleaning across all runs.",
	})
	featureRowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "churn_pipeline_feature_rows_total",
		Help: "Customer feature rows written across all runs.",
	})
)

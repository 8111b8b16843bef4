package planner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	pathPushdown = "pushdown"
	pathFallback = "fallback"
	pathCache    = "cache"
	pathEmpty    = "empty"

	deletePathRange = "range"
	deletePathKey   = "key"
)

var (
	metricQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kvplan",
		Name:      "planner_queries_total",
		Help:      "The total number of queries executed, by execution path.",
	}, []string{"path"})
	metricInefficientClauses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kvplan",
		Name:      "planner_inefficient_clauses_total",
		Help:      "The total number of clauses evaluated in memory.",
	}, []string{"kind"})
	metricFallbackRowsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kvplan",
		Name:      "planner_fallback_rows_scanned_total",
		Help:      "The total number of rows read from the store and filtered in memory.",
	})
	metricRowsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kvplan",
		Name:      "planner_rows_deleted_total",
		Help:      "The total number of rows deleted, by delete path.",
	}, []string{"path"})
)

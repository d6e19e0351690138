package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	EntitiesExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_entities_extracted_total",
			Help: "Entities extracted from query text, by kind",
		},
		[]string{"kind"},
	)

	CatalogSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_search_duration_seconds",
			Help:    "Latency of retrieval calls against the catalog index",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"index", "status"},
	)

	RerankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rerank_duration_seconds",
			Help:    "Time spent scoring and sorting candidates",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	CTRLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rerank_ctr_lookups_total",
			Help: "Batched CTR lookups by outcome (ok, fallback)",
		},
		[]string{"outcome"},
	)

	AnalyticsCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_results_total",
			Help: "Engagement cache lookups per id by result (hit, miss)",
		},
		[]string{"result"},
	)

	CartItemStatuses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_item_status_total",
			Help: "Cart items by resolved match status",
		},
		[]string{"status"},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papergraph_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "papergraph_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papergraph_uploads_total",
			Help: "Article uploads by outcome",
		},
		[]string{"status"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papergraph_llm_requests_total",
			Help: "LLM completions by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "papergraph_llm_request_duration_seconds",
			Help:    "LLM completion latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"operation"},
	)

	EdgesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papergraph_derived_edges_discarded_total",
		Help: "LLM-proposed edges dropped during validation",
	})

	GraphQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papergraph_graph_queries_total",
			Help: "Graph database statements by template and outcome",
		},
		[]string{"template", "status"},
	)

	SyncJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papergraph_sync_jobs_total",
			Help: "Graph sync jobs processed by outcome",
		},
		[]string{"status"},
	)
)

func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

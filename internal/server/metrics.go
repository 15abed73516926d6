package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions HTTP metrics by logical endpoint name rather than
// the raw URL path, keeping cardinality bounded.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// ingestTotal counts completed document ingests, partitioned by outcome:
	// "ok" or the failed stage ("chunk", "embed", "index").
	ingestTotal *prometheus.CounterVec

	// ingestDurationSeconds records wall-clock ingest duration per outcome.
	ingestDurationSeconds *prometheus.HistogramVec

	// queryTotal counts completed chat queries, partitioned by outcome:
	// "ok", "not_ready", "retrieval_error", or a generation failure category
	// ("rate_limited", "auth_failed", "unknown").
	queryTotal *prometheus.CounterVec

	// queryDurationSeconds records wall-clock query duration per outcome.
	queryDurationSeconds *prometheus.HistogramVec

	// sessionsActive is the number of live sessions in the registry.
	sessionsActive prometheus.Gauge

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. Metrics register into the provided registry,
// never the global default.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		ingestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whochat",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total number of document ingests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		ingestDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "whochat",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of document ingests (extract, chunk, embed, index).",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		queryTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whochat",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of chat queries completed, partitioned by outcome.",
		}, []string{"outcome"}),

		queryDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "whochat",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of chat queries from receipt to answer.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"outcome"}),

		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "whochat",
			Name:      "sessions_active",
			Help:      "Number of live chat sessions in memory.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whochat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "whochat",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

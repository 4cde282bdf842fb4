package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Upstream Prometheus metrics for calls into Meilisearch.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meiligate",
			Name:      "meilisearch_requests_total",
			Help:      "Total number of calls made to Meilisearch",
		},
		[]string{"operation", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "meiligate",
			Name:      "meilisearch_request_duration_seconds",
			Help:      "Meilisearch call duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	ClientLeasesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "meiligate",
			Name:      "client_leases_in_flight",
			Help:      "Meilisearch client leases currently held by requests",
		},
	)

	DocumentChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meiligate",
			Name:      "document_chunks_total",
			Help:      "Document chunks submitted by batching routes",
		},
		[]string{"mode"}, // "size" / "payload"
	)
)

var registerOnce sync.Once

// Register registers all meiligate collectors with the default registry.
// Must be called once from main; repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequestDuration)
		prometheus.MustRegister(httpRequestsTotal)
		prometheus.MustRegister(httpRequestsInFlight)
		prometheus.MustRegister(httpRequestBytes)
		prometheus.MustRegister(UpstreamRequestsTotal)
		prometheus.MustRegister(UpstreamRequestDuration)
		prometheus.MustRegister(ClientLeasesInFlight)
		prometheus.MustRegister(DocumentChunksTotal)
	})
}

// ObserveUpstream records one Meilisearch call.
func ObserveUpstream(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(operation, status).Inc()
	UpstreamRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

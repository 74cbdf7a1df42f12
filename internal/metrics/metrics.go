// Package metrics exposes Prometheus collectors for the scraper service.
// Collectors register against the default registerer at package load, so
// the Observe helpers are safe from any call site.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_total",
			Help: "Total number of pages fetched, labeled by kind and status.",
		},
		[]string{"kind", "status"},
	)

	scraperRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of center harvest retries, labeled by center.",
		},
		[]string{"center"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	dbWriteDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_write_duration_seconds",
			Help:    "Histogram of database write latencies, labeled by table.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"table"},
	)

	schedulerTicksSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_skipped_total",
			Help: "Total scheduler ticks skipped because a cycle was still running.",
		},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page fetch counter for the given kind
// ("centers" or "incidents") and HTTP status.
func ObservePage(kind string, status int) {
	scraperPagesTotal.WithLabelValues(kind, strconv.Itoa(status)).Inc()
}

// ObserveRetry increments the retry counter for a dispatch center.
func ObserveRetry(center string) {
	scraperRetriesTotal.WithLabelValues(center).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveDBWrite records the latency of a write against the given table.
func ObserveDBWrite(table string, duration time.Duration) {
	dbWriteDurationSeconds.WithLabelValues(table).Observe(duration.Seconds())
}

// ObserveTickSkipped increments the counter of overlapping scheduler ticks.
func ObserveTickSkipped() {
	schedulerTicksSkippedTotal.Inc()
}

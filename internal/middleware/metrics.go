package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aicaptains_api_requests_total",
		Help: "Total number of generate-response requests",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aicaptains_api_request_duration_seconds",
		Help:    "Duration of generate-response requests",
		Buckets: prometheus.DefBuckets,
	})

	// Upstream metrics
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aicaptains_api_upstream_requests_total",
		Help: "Total number of upstream completion requests",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aicaptains_api_upstream_request_duration_seconds",
		Help:    "Duration of upstream completion requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aicaptains_api_cache_hits_total",
		Help: "Total number of response cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aicaptains_api_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aicaptains_api_rate_limit_exceeded_total",
		Help: "Total number of rate limited requests",
	}, []string{"scope"})

	// Fallback metrics
	fallbackServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aicaptains_api_fallback_served_total",
		Help: "Total number of canned fallback responses served",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRequest records a completed request by HTTP status.
func (m *Metrics) RecordRequest(status int) {
	requestsTotal.WithLabelValues(fmt.Sprintf("%d", status)).Inc()
}

// RecordRequestDuration records the wall time of a request.
func (m *Metrics) RecordRequestDuration(duration time.Duration) {
	requestDuration.Observe(duration.Seconds())
}

// RecordUpstreamRequest records an upstream completion attempt.
func (m *Metrics) RecordUpstreamRequest(status string, duration time.Duration) {
	upstreamRequestsTotal.WithLabelValues(status).Inc()
	upstreamRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimitExceeded records a denied request; scope is "client" or "global".
func (m *Metrics) RecordRateLimitExceeded(scope string) {
	rateLimitExceeded.WithLabelValues(scope).Inc()
}

// RecordFallbackServed records a fallback response being served.
func (m *Metrics) RecordFallbackServed() {
	fallbackServed.Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}

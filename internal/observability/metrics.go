package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus metric the engine exposes.
type Metrics struct {
	// HTTP request metrics
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec

	// Engine pipeline metrics
	AnalyzeDuration  *prometheus.HistogramVec
	AnalyzeTotal     *prometheus.CounterVec
	DegradedTotal    prometheus.Counter
	ResponseCacheHit  prometheus.Counter
	ResponseCacheMiss prometheus.Counter

	// Per-model inference metrics
	ModelLatency  *prometheus.HistogramVec
	ModelFailures *prometheus.CounterVec

	// Circuit breaker metrics
	BreakerTrips *prometheus.CounterVec

	// Consensus and conflict metrics
	ConsensusTotal *prometheus.CounterVec
	ConflictsTotal *prometheus.CounterVec

	// External risk client metrics
	ExternalRiskTotal    *prometheus.CounterVec
	ExternalRiskDuration prometheus.Histogram
}

// NewMetrics creates and registers every metric.
func NewMetrics(serviceName string) *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"method", "path", "status"}),

		RequestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"method", "path", "status"}),

		AnalyzeDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analyze_duration_seconds",
			Help:    "End-to-end crisis assessment pipeline duration",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"severity", "degraded"}),

		AnalyzeTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "analyze_requests_total",
			Help: "Total crisis assessment requests by severity",
		}, []string{"severity"}),

		DegradedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "analyze_degraded_total",
			Help: "Total assessments returned in a degraded state (primary model unavailable)",
		}),

		ResponseCacheHit: promauto.NewCounter(prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "Total response cache hits",
		}),

		ResponseCacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "Total response cache misses",
		}),

		ModelLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "model_inference_duration_seconds",
			Help:    "Per-model inference duration",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"model"}),

		ModelFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "model_inference_failures_total",
			Help: "Total per-model inference failures",
		}, []string{"model"}),

		BreakerTrips: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total circuit breaker state transitions to open",
		}, []string{"model"}),

		ConsensusTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consensus_decisions_total",
			Help: "Total consensus decisions by algorithm and agreement level",
		}, []string{"algorithm", "agreement_level"}),

		ConflictsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conflicts_detected_total",
			Help: "Total conflicts detected by type and severity",
		}, []string{"type", "severity"}),

		ExternalRiskTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "external_risk_requests_total",
			Help: "Total external risk client calls by outcome status",
		}, []string{"status"}),

		ExternalRiskDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "external_risk_duration_seconds",
			Help:    "External risk client call duration",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// MetricsMiddleware returns a Gin middleware that records HTTP request
// metrics.
func MetricsMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		m.RequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// PrometheusHandler returns a Gin handler that exposes Prometheus metrics.
func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

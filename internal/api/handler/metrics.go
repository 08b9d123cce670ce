package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ccRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditchain_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	ccRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "creditchain_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	ccBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditchain_blocks_total",
		Help: "Total blocks appended by ledger kind.",
	}, []string{"kind"})

	ccVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditchain_verifications_total",
		Help: "Total chain verification passes by kind and outcome.",
	}, []string{"kind", "result"})

	ccIntegrityScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "creditchain_integrity_score",
		Help: "Most recent integrity score per ledger kind.",
	}, []string{"kind"})

	ccPredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditchain_predictions_total",
		Help: "Total scoring predictions by decision.",
	}, []string{"decision"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		ccRequestsTotal.WithLabelValues(method, path, status).Inc()
		ccRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordBlockAppend records a block append for a ledger kind.
func RecordBlockAppend(kind string) {
	ccBlocksTotal.WithLabelValues(kind).Inc()
}

// RecordVerification records a verification pass and its integrity score.
func RecordVerification(kind string, valid bool, score float64) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	ccVerificationsTotal.WithLabelValues(kind, result).Inc()
	ccIntegrityScore.WithLabelValues(kind).Set(score)
}

// RecordPrediction records a scoring decision.
func RecordPrediction(decision string) {
	ccPredictionsTotal.WithLabelValues(decision).Inc()
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagepulse",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "usagepulse",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "usagepulse",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Scan metrics
	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "usagepulse",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of portfolio anomaly scans in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	customersScannedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagepulse",
			Subsystem: "scan",
			Name:      "customers_total",
			Help:      "Total number of customer scans by outcome",
		},
		[]string{"outcome"},
	)

	customersSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagepulse",
			Subsystem: "scan",
			Name:      "customers_skipped_total",
			Help:      "Total number of skipped customer scans by reason",
		},
		[]string{"reason"},
	)

	lastScanTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "usagepulse",
			Subsystem: "scan",
			Name:      "last_completed_timestamp_seconds",
			Help:      "Unix time of the last completed portfolio scan",
		},
	)

	// Anomaly metrics
	anomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagepulse",
			Subsystem: "anomaly",
			Name:      "detected_total",
			Help:      "Total number of detected usage anomalies",
		},
		[]string{"type", "severity"},
	)

	baselineComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagepulse",
			Subsystem: "baseline",
			Name:      "lookups_total",
			Help:      "Total number of baseline lookups by source",
		},
		[]string{"source"},
	)

	// Trigger metrics
	triggerPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagepulse",
			Subsystem: "trigger",
			Name:      "publish_total",
			Help:      "Total number of trigger events published",
		},
		[]string{"publisher", "status"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "usagepulse",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "table"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		// Get route pattern from chi
		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordScan records a completed portfolio scan
func RecordScan(duration time.Duration, completedAt time.Time) {
	scanDuration.Observe(duration.Seconds())
	lastScanTimestamp.Set(float64(completedAt.Unix()))
}

// RecordCustomerScanned records a customer scan that ran to completion
func RecordCustomerScanned(withAnomalies bool) {
	outcome := "clean"
	if withAnomalies {
		outcome = "anomalous"
	}
	customersScannedTotal.WithLabelValues(outcome).Inc()
}

// RecordCustomerSkipped records a skipped customer scan
func RecordCustomerSkipped(reason string) {
	customersSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordAnomaly records a detected anomaly
func RecordAnomaly(anomalyType, severity string) {
	anomaliesDetectedTotal.WithLabelValues(anomalyType, severity).Inc()
}

// RecordBaselineLookup records where a baseline came from: cache, store or computed
func RecordBaselineLookup(source string) {
	baselineComputationsTotal.WithLabelValues(source).Inc()
}

// RecordTriggerPublish records a trigger publish attempt
func RecordTriggerPublish(publisher, status string) {
	triggerPublishTotal.WithLabelValues(publisher, status).Inc()
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation, table string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

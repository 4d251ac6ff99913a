package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "studioshot",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studioshot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studioshot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	generationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studioshot",
			Subsystem: "generations",
			Name:      "runs_total",
			Help:      "Total number of generation pipeline runs.",
		},
		[]string{"status"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studioshot",
			Subsystem: "generations",
			Name:      "run_duration_seconds",
			Help:      "Duration of generation pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~8.5m
		},
		[]string{"status"},
	)

	creditsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studioshot",
			Subsystem: "credits",
			Name:      "consumed_total",
			Help:      "Total number of credits consumed, by paying source.",
		},
		[]string{"source"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		generationRuns,
		generationDuration,
		creditsConsumed,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordGenerationRun records metrics for one pipeline run.
func RecordGenerationRun(status string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	generationRuns.WithLabelValues(status).Inc()
	generationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordCreditConsumed records a charged credit by paying source.
func RecordCreditConsumed(source string) {
	if source == "" {
		source = "unknown"
	}
	creditsConsumed.WithLabelValues(source).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	root := parts[0]
	if root != "persons" && root != "teams" {
		return "/" + root
	}
	if len(parts) == 1 {
		return "/" + root
	}
	if len(parts) == 2 {
		return "/" + root + "/:id"
	}
	return "/" + root + "/:id/" + parts[2]
}

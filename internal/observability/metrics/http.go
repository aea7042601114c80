package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

// HTTPServerMetrics owns the API registry: request metrics plus the
// recommender and search observations recorded by the use cases.
type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	strategyOutcomesTotal *prometheus.CounterVec
	searchTotal           *prometheus.CounterVec
	searchDuration        *prometheus.HistogramVec
	breakerState          *prometheus.GaugeVec
	breakerTransitions    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recommender",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "recommender",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	strategyOutcomesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "strategy",
			Name:      "outcomes_total",
			Help:      "Recommendation answers by operation, serving strategy and fallback reason.",
		},
		[]string{"service", "operation", "strategy", "reason"},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search pipeline runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recommender",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search pipeline duration in seconds by outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service", "outcome"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "recommender",
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)
	breakerTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "breaker",
			Name:      "transitions_total",
			Help:      "Circuit breaker state transitions.",
		},
		[]string{"service", "operation", "to"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		strategyOutcomesTotal,
		searchTotal,
		searchDuration,
		breakerState,
		breakerTransitions,
	)

	return &HTTPServerMetrics{
		service:               service,
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		strategyOutcomesTotal: strategyOutcomesTotal,
		searchTotal:           searchTotal,
		searchDuration:        searchDuration,
		breakerState:          breakerState,
		breakerTransitions:    breakerTransitions,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware must run inside the chi router so the matched route pattern is
// available as the path label.
func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := routePath(r)
		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/datasets/"):
		return "/v1/datasets/{id}"
	case strings.HasPrefix(path, "/v1/queries/"):
		return "/v1/queries/{id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordStrategyOutcome(operation, strategy string, reason domain.FallbackReason) {
	label := string(reason)
	if label == "" {
		label = "none"
	}
	m.strategyOutcomesTotal.WithLabelValues(m.service, operation, strategy, label).Inc()
}

func (m *HTTPServerMetrics) ObserveSearch(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.searchTotal.WithLabelValues(m.service, outcome).Inc()
	m.searchDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

// BreakerStateChanged matches resilience.StateChangeFunc.
func (m *HTTPServerMetrics) BreakerStateChanged(operation, _, to string) {
	m.breakerState.WithLabelValues(m.service, operation).Set(breakerStateValue(to))
	m.breakerTransitions.WithLabelValues(m.service, operation, to).Inc()
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

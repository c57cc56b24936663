package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

const namespace = "f1rag"

var knownRoutes = []string{"/health", "/chunk", "/embed", "/store", "/query", "/ingest", "/metadata", "/metrics"}

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal      *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	contextSize     *prometheus.HistogramVec
	queryNoSpecific prometheus.Counter
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "queries_total",
			Help:      "Total penalty queries by status.",
		},
		[]string{"service", "status"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "query_duration_seconds",
			Help:      "Penalty query duration in seconds, generation included.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"service", "status"},
	)
	contextSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "context_documents",
			Help:      "Retrieved documents per query by context tier.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"service", "tier"},
	)
	queryNoSpecific := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "no_specific_context_total",
			Help:      "Successful queries whose metadata matched no stewards' decision.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryDuration,
		contextSize,
		queryNoSpecific,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		service:         service,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		queryTotal:      queryTotal,
		queryDuration:   queryDuration,
		contextSize:     contextSize,
		queryNoSpecific: queryNoSpecific,
	}
}

// Registry lets other collectors share the /metrics endpoint.
func (m *HTTPServerMetrics) Registry() prometheus.Registerer {
	return m.registry
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath folds trailing slashes and unknown paths to keep label
// cardinality bounded.
func normalizePath(path string) string {
	if path == "/" {
		return "/"
	}
	trimmed := strings.TrimSuffix(path, "/")
	for _, route := range knownRoutes {
		if trimmed == route {
			return route
		}
	}
	return "other"
}

// ObserveQuery records one penalty query and its context sizes per tier.
func (m *HTTPServerMetrics) ObserveQuery(rc domain.RetrievalContext, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = errorStatus(err)
	}
	m.queryTotal.WithLabelValues(m.service, status).Inc()
	m.queryDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
	if err != nil {
		return
	}

	m.contextSize.WithLabelValues(m.service, "specific").Observe(float64(len(rc.Specific)))
	m.contextSize.WithLabelValues(m.service, "historical").Observe(float64(len(rc.Historical)))
	m.contextSize.WithLabelValues(m.service, "regulatory").Observe(float64(len(rc.Regulatory)))
	if len(rc.Specific) == 0 {
		m.queryNoSpecific.Inc()
	}
}

func errorStatus(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidQuery), domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_query"
	case domain.IsKind(err, domain.ErrCollectionUnavailable):
		return "collection_unavailable"
	case domain.IsKind(err, domain.ErrEmbeddingService):
		return "embedding_error"
	case domain.IsKind(err, domain.ErrGenerationService):
		return "generation_error"
	case domain.IsKind(err, domain.ErrNetwork):
		return "network_error"
	default:
		return "error"
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

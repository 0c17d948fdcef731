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
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	chatTurnsTotal      *prometheus.CounterVec
	chatTurnDuration    *prometheus.HistogramVec
	chatFollowupTotal   *prometheus.CounterVec
	chatRetrievalTotal  *prometheus.CounterVec
	chatRetrievedChunks *prometheus.HistogramVec
	activeSessions      prometheus.Gauge
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hba",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hba",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hba",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chatTurnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hba",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total completed conversation turns by classified intent.",
		},
		[]string{"service", "intent"},
	)
	chatTurnDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hba",
			Subsystem: "chat",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	chatFollowupTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hba",
			Subsystem: "chat",
			Name:      "followup_total",
			Help:      "Follow-up candidates by validation result.",
		},
		[]string{"service", "result"},
	)
	chatRetrievalTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hba",
			Subsystem: "chat",
			Name:      "retrieval_total",
			Help:      "Retrieval stages by outcome.",
		},
		[]string{"service", "outcome"},
	)
	chatRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hba",
			Subsystem: "chat",
			Name:      "retrieved_chunks",
			Help:      "Distribution of context chunks per answered turn.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	activeSessions := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hba",
			Subsystem: "chat",
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions held in memory.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chatTurnsTotal,
		chatTurnDuration,
		chatFollowupTotal,
		chatRetrievalTotal,
		chatRetrievedChunks,
		activeSessions,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		chatTurnsTotal:      chatTurnsTotal,
		chatTurnDuration:    chatTurnDuration,
		chatFollowupTotal:   chatFollowupTotal,
		chatRetrievalTotal:  chatRetrievalTotal,
		chatRetrievedChunks: chatRetrievedChunks,
		activeSessions:      activeSessions,
	}
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

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordTurn(service, intent string, duration time.Duration) {
	if intent == "" {
		intent = "unknown"
	}
	m.chatTurnsTotal.WithLabelValues(service, intent).Inc()
	m.chatTurnDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordFollowup(service string, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.chatFollowupTotal.WithLabelValues(service, result).Inc()
}

func (m *HTTPServerMetrics) RecordRetrieval(service string, chunkCount int) {
	outcome := "empty"
	if chunkCount > 0 {
		outcome = "hit"
	}
	m.chatRetrievalTotal.WithLabelValues(service, outcome).Inc()
	m.chatRetrievedChunks.WithLabelValues(service).Observe(float64(chunkCount))
}

func (m *HTTPServerMetrics) SetActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
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

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}

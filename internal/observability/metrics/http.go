package metrics

import (
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

	uploadsTotal       *prometheus.CounterVec
	splitActionsTotal  *prometheus.CounterVec
	exportsTotal       *prometheus.CounterVec
	rateLimitedTotal   *prometheus.CounterVec
	uploadRejectsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptwise",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "receiptwise",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "receiptwise",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptwise",
			Subsystem: "receipts",
			Name:      "uploads_total",
			Help:      "Total accepted receipt uploads.",
		},
		[]string{"service"},
	)
	splitActionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptwise",
			Subsystem: "receipts",
			Name:      "split_actions_total",
			Help:      "Total bill-split actions evaluated.",
		},
		[]string{"service", "action"},
	)
	exportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptwise",
			Subsystem: "receipts",
			Name:      "exports_total",
			Help:      "Total spreadsheet exports served.",
		},
		[]string{"service"},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptwise",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by the rate limiter.",
		},
		[]string{"service"},
	)
	uploadRejectsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptwise",
			Subsystem: "receipts",
			Name:      "upload_rejects_total",
			Help:      "Total uploads rejected before the OCR call by format validation.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		splitActionsTotal,
		exportsTotal,
		rateLimitedTotal,
		uploadRejectsTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		uploadsTotal:       uploadsTotal,
		splitActionsTotal:  splitActionsTotal,
		exportsTotal:       exportsTotal,
		rateLimitedTotal:   rateLimitedTotal,
		uploadRejectsTotal: uploadRejectsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &StatusRecorder{
			ResponseWriter: w,
			StatusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.StatusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "/v1/receipts/") {
		rest := strings.TrimPrefix(path, "/v1/receipts/")
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			return "/v1/receipts/{receipt_id}/" + rest[idx+1:]
		}
		return "/v1/receipts/{receipt_id}"
	}
	return path
}

func (m *HTTPServerMetrics) RecordUpload(service string) {
	m.uploadsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordUploadReject(service string) {
	m.uploadRejectsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordSplitAction(service, action string) {
	if action == "" {
		action = "unknown"
	}
	m.splitActionsTotal.WithLabelValues(service, action).Inc()
}

func (m *HTTPServerMetrics) RecordExport(service string) {
	m.exportsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordRateLimited(service string) {
	m.rateLimitedTotal.WithLabelValues(service).Inc()
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ssargent/mediashelf/pkg/storage"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Catalog operation metrics
	catalogOperationsTotal   *prometheus.CounterVec
	catalogOperationDuration *prometheus.HistogramVec
	mediaTotal               prometheus.Gauge
	reviewsTotal             prometheus.Gauge
	storageKeys              *prometheus.GaugeVec
	storageBytes             *prometheus.GaugeVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Document export metrics
	exportsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all API metrics and registers them with reg. A nil reg
// leaves them unregistered, which lets tests build servers freely.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shelf_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shelf_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		catalogOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_catalog_operations_total",
				Help: "Total number of catalog store operations",
			},
			[]string{"operation", "status"},
		),

		catalogOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shelf_catalog_operation_duration_seconds",
				Help:    "Catalog store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		mediaTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "shelf_media_total",
				Help: "Number of media records in the catalog",
			},
		),

		reviewsTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "shelf_reviews_total",
				Help: "Number of reviews in the catalog",
			},
		),

		storageKeys: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shelf_storage_keys",
				Help: "Live keys held by each collection's storage engine",
			},
			[]string{"collection"},
		),

		storageBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shelf_storage_bytes",
				Help: "On-disk size of each collection's storage engine",
			},
			[]string{"collection"},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		exportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_exports_total",
				Help: "Total number of PDF exports by outcome",
			},
			[]string{"status"},
		),

		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

func statusLabel(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCatalogOperation records a catalog store operation
func (m *Metrics) RecordCatalogOperation(operation string, success bool, duration time.Duration) {
	m.catalogOperationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
	m.catalogOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateCatalogStats updates the collection size gauges
func (m *Metrics) UpdateCatalogStats(media, reviews int) {
	m.mediaTotal.Set(float64(media))
	m.reviewsTotal.Set(float64(reviews))
}

// UpdateStorageStats updates the engine gauges of one collection
func (m *Metrics) UpdateStorageStats(collection string, st storage.Stats) {
	m.storageKeys.WithLabelValues(collection).Set(float64(st.Keys))
	m.storageBytes.WithLabelValues(collection).Set(float64(st.DataSize))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	m.authRequestsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordExport records the outcome of a document export
func (m *Metrics) RecordExport(success bool) {
	m.exportsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	m.healthChecksTotal.WithLabelValues(statusLabel(success)).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// the wrapper keeps http.Flusher so streamed exports still flush
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.RecordHTTPRequest(method, endpoint, status, time.Since(start))
		}()

		handler(ww, r)
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next(h).ServeHTTP(ww, r)

			if hasAPIKey {
				m.RecordAuthRequest(ww.Status() != http.StatusUnauthorized)
			}
		})
	}
}

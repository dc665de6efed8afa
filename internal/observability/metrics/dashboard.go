package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// DashboardMetrics contains Prometheus metrics for data loading, navigation
// and page serving. It implements Recorder.
type DashboardMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	fetchBytes        *prometheus.HistogramVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	templateRenderDuration *prometheus.HistogramVec
	templateRenderErrors   *prometheus.CounterVec
}

// NewDashboardMetrics creates the collectors and registers them.
func NewDashboardMetrics(registry prometheus.Registerer) (*DashboardMetrics, error) {
	m := &DashboardMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DashboardMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evened_operations_total",
			Help: "Total number of data operations by outcome",
		},
		[]string{"operation", "status"}, // operation: fetch_http, session_load, navigation; status: success, error, stale
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evened_operation_duration_seconds",
			Help:    "Time taken for data operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)

	m.operationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evened_operation_errors_total",
			Help: "Total number of data operation errors by category",
		},
		[]string{"operation", "error_type"}, // error_type: errors.ErrorCategory values
	)

	m.fetchBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evened_fetch_size_bytes",
			Help:    "Size of fetched session files",
			Buckets: prometheus.ExponentialBuckets(BucketStart100B, BucketFactor10, BucketCount6),
		},
		[]string{"source"},
	)

	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evened_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "path", "status_code"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evened_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.templateRenderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evened_template_render_duration_seconds",
			Help:    "Time taken for template rendering",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"template"},
	)

	m.templateRenderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evened_template_render_errors_total",
			Help: "Total number of template rendering errors",
		},
		[]string{"template"},
	)
}

func (m *DashboardMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.operationErrors,
		m.fetchBytes,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.templateRenderDuration,
		m.templateRenderErrors,
	}
}

// Describe implements the Collector interface
func (m *DashboardMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DashboardMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// RecordOperation implements Recorder.
func (m *DashboardMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *DashboardMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *DashboardMetrics) RecordError(operation, errorType string) {
	m.operationErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordFetchSize records the size of a fetched file.
func (m *DashboardMetrics) RecordFetchSize(source string, sizeBytes int) {
	m.fetchBytes.WithLabelValues(source).Observe(float64(sizeBytes))
}

// RecordHTTPRequest records a served request. path is the route pattern,
// not the raw URL, to keep label cardinality bounded.
func (m *DashboardMetrics) RecordHTTPRequest(method, path string, statusCode int, seconds float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordTemplateRender records a template execution.
func (m *DashboardMetrics) RecordTemplateRender(template string, seconds float64, err error) {
	m.templateRenderDuration.WithLabelValues(template).Observe(seconds)
	if err != nil {
		m.templateRenderErrors.WithLabelValues(template).Inc()
	}
}

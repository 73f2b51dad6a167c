// Package metrics provides Prometheus metrics for the powerwatch service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the powerwatch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Read path: dashboard views and growth reports
	viewsAssembled     prometheus.Counter
	viewAssemblyTime   prometheus.Histogram
	reportsGenerated   *prometheus.CounterVec
	reportLatency      prometheus.Histogram
	trackedEntities    prometheus.Gauge
	trackedSnapshots   prometheus.Gauge
	availableDateCount prometheus.Gauge

	// Import pipeline
	importsSubmitted prometheus.Counter
	importsDuplicate prometheus.Counter
	importsRejected  prometheus.Counter
	importRows       *prometheus.CounterVec
	importErrors     prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store Metrics
	storeQueryLatency  *prometheus.HistogramVec
	storeUpdateLatency *prometheus.HistogramVec
	storeErrors        *prometheus.CounterVec

	// Queue Metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "powerwatch",
		subsystem:        "alliances",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	m.refreshInterval.Store(int64(defaultRefreshInterval))

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether recorders write to this manager.
func (m *Manager) Enabled() bool { return m.enabled.Load() }

// RefreshInterval is the period background updaters publish gauges at.
func (m *Manager) RefreshInterval() time.Duration {
	return time.Duration(m.refreshInterval.Load())
}

// SetEnabled turns the package-level recorders on or off.
func SetEnabled(enabled bool) { globalManager.enabled.Store(enabled) }

// Enabled reports whether the package-level recorders are on.
func Enabled() bool { return globalManager.Enabled() }

// SetRefreshInterval changes the gauge refresh period. Non-positive
// values are ignored. Updaters read it when they start.
func SetRefreshInterval(interval time.Duration) {
	if interval > 0 {
		globalManager.refreshInterval.Store(int64(interval))
	}
}

// RefreshInterval returns the gauge refresh period of the global manager.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

func on() bool { return globalManager.enabled.Load() }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.viewsAssembled = m.counter("dashboard_views_total", "Total number of dashboard views assembled")
	m.viewAssemblyTime = m.histogram("dashboard_assembly_latency_milliseconds", "Dashboard assembly latency in milliseconds", m.histogramBuckets)
	m.reportsGenerated = m.counterVec("growth_reports_total", "Total number of growth reports by kind", "kind")
	m.reportLatency = m.histogram("growth_report_latency_milliseconds", "Growth report latency in milliseconds", m.histogramBuckets)
	m.trackedEntities = m.gauge("entities_tracked", "Number of tracked alliances")
	m.trackedSnapshots = m.gauge("snapshots_tracked", "Number of stored snapshots")
	m.availableDateCount = m.gauge("available_dates", "Number of distinct snapshot dates")

	m.importsSubmitted = m.counter("imports_submitted_total", "Total number of import batches accepted")
	m.importsDuplicate = m.counter("imports_duplicate_total", "Total number of import batches dropped as duplicates")
	m.importsRejected = m.counter("imports_rejected_total", "Total number of import batches rejected on backpressure")
	m.importRows = m.counterVec("import_rows_total", "Import rows by outcome", "outcome")
	m.importErrors = m.counter("import_errors_total", "Total number of import batches that failed to apply")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.storeQueryLatency = m.histogramVec("store_query_latency_milliseconds", "Store read latency in milliseconds", "operation")
	m.storeUpdateLatency = m.histogramVec("store_update_latency_milliseconds", "Store write latency in milliseconds", "operation")
	m.storeErrors = m.counterVec("store_errors_total", "Store errors by operation", "operation")

	m.queueSize = m.gauge("queue_size", "Current size of the import queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the import queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of batches enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of batches dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time a batch spends in the queue in milliseconds", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Configured number of import workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers applying a batch")
	m.workerIdleCount = m.gauge("worker_idle_count", "Number of idle workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Import batch apply latency in milliseconds", m.histogramBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of worker errors")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordDashboardView records one assembled dashboard view.
func RecordDashboardView(latencyMs float64) {
	if !on() {
		return
	}
	globalManager.viewsAssembled.Inc()
	globalManager.viewAssemblyTime.Observe(latencyMs)
}

// RecordGrowthReport records one growth report of the given kind ("event" or "range").
func RecordGrowthReport(kind string, latencyMs float64) {
	if !on() {
		return
	}
	globalManager.reportsGenerated.WithLabelValues(kind).Inc()
	globalManager.reportLatency.Observe(latencyMs)
}

// UpdateTrackedEntities sets the tracked alliance count.
func UpdateTrackedEntities(count int) {
	if !on() {
		return
	}
	globalManager.trackedEntities.Set(float64(count))
}

// UpdateTrackedSnapshots sets the stored snapshot count.
func UpdateTrackedSnapshots(count int) {
	if !on() {
		return
	}
	globalManager.trackedSnapshots.Set(float64(count))
}

// UpdateAvailableDates sets the distinct snapshot date count.
func UpdateAvailableDates(count int) {
	if !on() {
		return
	}
	globalManager.availableDateCount.Set(float64(count))
}

// RecordImportSubmitted increments the accepted import counter.
func RecordImportSubmitted() {
	if !on() {
		return
	}
	globalManager.importsSubmitted.Inc()
}

// RecordImportDuplicate increments the duplicate import counter.
func RecordImportDuplicate() {
	if !on() {
		return
	}
	globalManager.importsDuplicate.Inc()
}

// RecordImportRejected increments the backpressure rejection counter.
func RecordImportRejected() {
	if !on() {
		return
	}
	globalManager.importsRejected.Inc()
}

// RecordImportRows adds n rows with the given outcome (inserted, updated, skipped, created).
func RecordImportRows(outcome string, n int) {
	if !on() || n <= 0 {
		return
	}
	globalManager.importRows.WithLabelValues(outcome).Add(float64(n))
}

// RecordImportError increments the failed import counter.
func RecordImportError() {
	if !on() {
		return
	}
	globalManager.importErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !on() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !on() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordStoreQueryLatency records a store read.
func RecordStoreQueryLatency(operation string, latencyMs float64) {
	if !on() {
		return
	}
	globalManager.storeQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreUpdateLatency records a store write.
func RecordStoreUpdateLatency(operation string, latencyMs float64) {
	if !on() {
		return
	}
	globalManager.storeUpdateLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError increments the store error counter for operation.
func RecordStoreError(operation string) {
	if !on() {
		return
	}
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !on() {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !on() {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if !on() {
		return
	}
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !on() {
		return
	}
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if !on() {
		return
	}
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if !on() {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records how long a batch waited in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	if !on() {
		return
	}
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if !on() {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	if !on() {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	if !on() {
		return
	}
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !on() {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if !on() {
		return
	}
	globalManager.workerErrorRate.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !on() {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !on() {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !on() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !on() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !on() {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

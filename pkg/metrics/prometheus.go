// Package metrics provides Prometheus metrics for the grading engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Grading
	trimesterComputations *prometheus.CounterVec
	finalComputations     *prometheus.CounterVec
	gradeRejections       *prometheus.CounterVec
	tierResolutions       *prometheus.CounterVec
	tierFallbacks         prometheus.Counter

	// Finance and access
	delinquencyEvaluations *prometheus.CounterVec
	accessDecisions        *prometheus.CounterVec
	accessFailOpen         prometheus.Counter

	// Repository
	versionConflicts       prometheus.Counter
	repositoryQueryLatency *prometheus.HistogramVec
	repositoryErrors       *prometheus.CounterVec
	cacheHits              *prometheus.CounterVec
	cacheMisses            *prometheus.CounterVec
	cacheInvalidations     prometheus.Counter
	historyEventsAppended  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pauta",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: m.customLabels,
		}, labels)
	}
	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: m.customLabels,
		})
	}

	m.trimesterComputations = counterVec("trimester_computations_total",
		"Trimester aggregations by tier and status (graded or pending)", "tier", "status")
	m.finalComputations = counterVec("final_computations_total",
		"Year-end aggregations by tier and status", "tier", "status")
	m.gradeRejections = counterVec("grade_rejections_total",
		"Component values rejected for falling outside the tier scale", "component")
	m.tierResolutions = counterVec("tier_resolutions_total",
		"Class designations resolved, by tier", "tier")
	m.tierFallbacks = counter("tier_fallback_total",
		"Unrecognized class designations that defaulted to the secondary tier")

	m.delinquencyEvaluations = counterVec("delinquency_evaluations_total",
		"Delinquency evaluations by resulting state", "state")
	m.accessDecisions = counterVec("access_decisions_total",
		"Grade visibility decisions", "allowed")
	m.accessFailOpen = counter("access_fail_open_total",
		"Grade visibility decisions taken without finance data")

	m.versionConflicts = counter("version_conflicts_total",
		"Trimester saves rejected by the optimistic version check")
	m.repositoryQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "repository_query_latency_milliseconds",
		Help:        "Repository operation latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"store", "operation"})
	m.repositoryErrors = counterVec("repository_errors_total",
		"Repository operations that returned an error", "store", "operation")
	m.cacheHits = counterVec("cache_hits_total", "Cache hits by entity kind", "kind")
	m.cacheMisses = counterVec("cache_misses_total", "Cache misses by entity kind", "kind")
	m.cacheInvalidations = counter("cache_invalidations_total", "Tag invalidations issued on writes")
	m.historyEventsAppended = counter("history_events_total", "Grade change events appended to the history log")

	m.httpRequests = counterVec("http_requests_total",
		"Total number of HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")
}

// Grading.

// RecordTrimesterComputation counts a trimester aggregation.
func RecordTrimesterComputation(tier, status string) {
	globalManager.trimesterComputations.WithLabelValues(tier, status).Inc()
}

// RecordFinalComputation counts a year-end aggregation.
func RecordFinalComputation(tier, status string) {
	globalManager.finalComputations.WithLabelValues(tier, status).Inc()
}

// RecordGradeRejection counts an out-of-range component value.
func RecordGradeRejection(component string) {
	globalManager.gradeRejections.WithLabelValues(component).Inc()
}

// RecordTierResolution counts a resolved class designation.
func RecordTierResolution(tier string) {
	globalManager.tierResolutions.WithLabelValues(tier).Inc()
}

// RecordTierFallback counts a designation that matched no known prefix.
func RecordTierFallback() {
	globalManager.tierFallbacks.Inc()
}

// Finance and access.

// RecordDelinquencyEvaluation counts an evaluation by state ("clear", "grace", "contencioso").
func RecordDelinquencyEvaluation(state string) {
	globalManager.delinquencyEvaluations.WithLabelValues(state).Inc()
}

// RecordAccessDecision counts a grade visibility decision.
func RecordAccessDecision(allowed bool) {
	label := "false"
	if allowed {
		label = "true"
	}
	globalManager.accessDecisions.WithLabelValues(label).Inc()
}

// RecordAccessFailOpen counts a decision taken without finance data.
func RecordAccessFailOpen() {
	globalManager.accessFailOpen.Inc()
}

// Repository.

// RecordVersionConflict counts a rejected optimistic save.
func RecordVersionConflict() {
	globalManager.versionConflicts.Inc()
}

// SinceMillis returns the time elapsed since start in fractional milliseconds,
// so sub-millisecond operations still land in the low buckets.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// RecordRepositoryLatency records a repository operation latency in milliseconds.
func RecordRepositoryLatency(store, operation string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(store, operation).Observe(latencyMs)
}

// RecordRepositoryError counts a failed repository operation.
func RecordRepositoryError(store, operation string) {
	globalManager.repositoryErrors.WithLabelValues(store, operation).Inc()
}

// RecordCacheHit counts a cache hit.
func RecordCacheHit(kind string) {
	globalManager.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss counts a cache miss.
func RecordCacheMiss(kind string) {
	globalManager.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordCacheInvalidation counts a tag invalidation.
func RecordCacheInvalidation() {
	globalManager.cacheInvalidations.Inc()
}

// RecordHistoryEvents counts appended grade change events.
func RecordHistoryEvents(n int) {
	globalManager.historyEventsAppended.Add(float64(n))
}

// HTTP.

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint increments the error counter for a specific endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

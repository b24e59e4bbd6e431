// Package metrics provides Prometheus metrics for the arena rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Votes
	votesApplied        prometheus.Counter
	votesRejected       *prometheus.CounterVec
	votesDuplicate      prometheus.Counter
	persistenceFailures prometheus.Counter
	voteApplyLatency    prometheus.Histogram

	// Replay and analytics
	replayDuration    prometheus.Histogram
	replayEvents      prometheus.Gauge
	analyticsBuilds   prometheus.Counter
	analyticsDuration prometheus.Histogram
	analyticsShared   prometheus.Counter

	// Ratings
	catalogItems prometheus.Gauge
	ratings      *prometheus.GaugeVec
	matchups     prometheus.Counter

	// Write queue
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	rateLimited         *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps default Go collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "arena",
		subsystem:        "ratings",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.votesApplied = auto.NewCounter(m.counter("votes_applied_total", "Total number of votes applied to the live ratings"))
	m.votesRejected = auto.NewCounterVec(m.counter("votes_rejected_total", "Total number of votes rejected, by reason"), []string{"reason"})
	m.votesDuplicate = auto.NewCounter(m.counter("votes_duplicate_total", "Total number of duplicate vote submissions"))
	m.persistenceFailures = auto.NewCounter(m.counter("persistence_failures_total", "Total number of failed vote log appends"))
	m.voteApplyLatency = auto.NewHistogram(m.histogram("vote_apply_latency_milliseconds", "Latency of persisting and applying a vote in milliseconds"))

	m.replayDuration = auto.NewHistogram(m.histogram("replay_duration_milliseconds", "Duration of a full vote log replay in milliseconds"))
	m.replayEvents = auto.NewGauge(m.gauge("replay_events", "Number of events applied by the last startup replay"))
	m.analyticsBuilds = auto.NewCounter(m.counter("analytics_builds_total", "Total number of timeline rebuilds from the vote log"))
	m.analyticsDuration = auto.NewHistogram(m.histogram("analytics_duration_milliseconds", "Duration of a timeline rebuild in milliseconds"))
	m.analyticsShared = auto.NewCounter(m.counter("analytics_shared_total", "Total number of analytics requests served by an in-flight rebuild"))

	m.catalogItems = auto.NewGauge(m.gauge("catalog_items", "Number of rankable items in the catalog"))
	m.ratings = auto.NewGaugeVec(m.gauge("rating", "Current rating per item"), []string{"item"})
	m.matchups = auto.NewCounter(m.counter("matchups_total", "Total number of random pairings served"))

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Current number of votes waiting for the writer"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Capacity of the vote write queue"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total", "Total number of HTTP errors by endpoint and type"),
		[]string{"endpoint", "method", "error_type"})
	m.rateLimited = auto.NewCounterVec(m.counter("rate_limited_total", "Total number of requests rejected by the rate limiter"),
		[]string{"endpoint"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_bytes", "Current heap allocation in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutines", "Current number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram("system_gc_pause_milliseconds", "Average GC pause time in milliseconds"))
}

func enabled() bool {
	return globalManager != nil && globalManager.enabled
}

// RecordVoteApplied counts a vote applied to the live engine.
func RecordVoteApplied() {
	if enabled() {
		globalManager.votesApplied.Inc()
	}
}

// RecordVoteRejected counts a rejected vote. reason is a short label such as
// "unknown_item", "persistence" or "backpressure".
func RecordVoteRejected(reason string) {
	if enabled() {
		globalManager.votesRejected.WithLabelValues(reason).Inc()
	}
}

// RecordVoteDuplicate counts a vote id seen before.
func RecordVoteDuplicate() {
	if enabled() {
		globalManager.votesDuplicate.Inc()
	}
}

// RecordPersistenceFailure counts a failed durable append.
func RecordPersistenceFailure() {
	if enabled() {
		globalManager.persistenceFailures.Inc()
	}
}

// RecordVoteApplyLatency observes persist+apply latency.
func RecordVoteApplyLatency(latencyMs float64) {
	if enabled() {
		globalManager.voteApplyLatency.Observe(latencyMs)
	}
}

// RecordReplay observes a startup replay.
func RecordReplay(durationMs float64, events int) {
	if enabled() {
		globalManager.replayDuration.Observe(durationMs)
		globalManager.replayEvents.Set(float64(events))
	}
}

// RecordAnalyticsBuild observes one timeline rebuild.
func RecordAnalyticsBuild(durationMs float64) {
	if enabled() {
		globalManager.analyticsBuilds.Inc()
		globalManager.analyticsDuration.Observe(durationMs)
	}
}

// RecordAnalyticsShared counts a request that joined an in-flight rebuild.
func RecordAnalyticsShared() {
	if enabled() {
		globalManager.analyticsShared.Inc()
	}
}

// UpdateCatalogItems sets the catalog size.
func UpdateCatalogItems(count int) {
	if enabled() {
		globalManager.catalogItems.Set(float64(count))
	}
}

// UpdateRating sets the current rating of one item.
func UpdateRating(item string, rating float64) {
	if enabled() {
		globalManager.ratings.WithLabelValues(item).Set(rating)
	}
}

// RecordMatchup counts a served pairing.
func RecordMatchup() {
	if enabled() {
		globalManager.matchups.Inc()
	}
}

// UpdateQueueSize sets the write queue backlog.
func UpdateQueueSize(size int) {
	if enabled() {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the write queue capacity.
func UpdateQueueCapacity(capacity int) {
	if enabled() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if enabled() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if enabled() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByEndpoint counts an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if enabled() {
		globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(endpoint string) {
	if enabled() {
		globalManager.rateLimited.WithLabelValues(endpoint).Inc()
	}
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if enabled() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if enabled() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if enabled() {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

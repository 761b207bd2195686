// Package metrics provides Prometheus metrics for indexerd: HTTP traffic,
// indexer lifecycle transitions, storage and queue operations, and cache
// effectiveness. All vectors are registered automatically via promauto.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled HTTP requests
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexerd_http_requests_total",
		Help: "Total HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	// HTTPDuration tracks request latency
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "indexerd_http_request_duration_seconds",
		Help:    "HTTP request latency distribution",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// IndexerTransitions counts lifecycle state transitions
	IndexerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexerd_indexer_transitions_total",
		Help: "Indexer status transitions by target status",
	}, []string{"status"})

	// RunningIndexers tracks the number of supervised processes
	RunningIndexers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indexerd_running_indexers",
		Help: "Number of indexer processes currently supervised",
	})

	// StorageOperations counts object store calls
	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexerd_storage_operations_total",
		Help: "Object storage operations by operation and outcome",
	}, []string{"op", "outcome"})

	// QueueMessages counts queue publishes and consumes
	QueueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexerd_queue_messages_total",
		Help: "Queue messages by queue and direction",
	}, []string{"queue", "direction"})

	// CacheOperations counts cache lookups by result
	CacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexerd_cache_operations_total",
		Help: "Cache operations by operation and result",
	}, []string{"op", "result"})
)

// ObserveHTTP records one handled request
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordTransition records one indexer status transition
func RecordTransition(status string) {
	IndexerTransitions.WithLabelValues(status).Inc()
}

// RecordStorageOp records one object store call
func RecordStorageOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	StorageOperations.WithLabelValues(op, outcome).Inc()
}

// RecordQueueMessage records one queue publish or consume
func RecordQueueMessage(queue, direction string) {
	QueueMessages.WithLabelValues(queue, direction).Inc()
}

// RecordCacheOp records one cache lookup or write
func RecordCacheOp(op, result string) {
	CacheOperations.WithLabelValues(op, result).Inc()
}

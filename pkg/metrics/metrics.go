// Package metrics exposes the Prometheus registry used by orderbridge.
// Metrics are defined in their respective packages (client, cache, ratelimit)
// to keep those packages self-contained and free of import cycles.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all orderbridge metrics are created on via promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the matching gatherer for Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Metrics Documentation
//
// Throttle Metrics (pkg/ratelimit):
//   - orderbridge_shared_throttles_total (Counter): Throttle windows published to Redis
//   - orderbridge_shared_throttle_waits_total (Counter): Requests delayed by a shared window
//   - orderbridge_shared_throttle_wait_seconds (Histogram): Time spent waiting on shared windows
//
// Pagination Metrics (pkg/pagination):
//   - orderbridge_pages_fetched_total{query} (Counter): Pages fetched per query
//   - orderbridge_read_errors_total{query} (Counter): Pages skipped as read errors
//   - orderbridge_run_duration_seconds{query} (Histogram): Duration of a paginated run
//
// Cache Metrics (pkg/cache):
//   - orderbridge_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - orderbridge_cache_misses_total (Counter): Cache misses
//   - orderbridge_cache_bytes_written_total{layer="redis"} (Counter): Bytes written to the cache
//   - orderbridge_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - orderbridge_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - orderbridge_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - orderbridge_errors_total{class} (Counter): Failed calls by error class
//   - orderbridge_throttled_total (Counter): Throttled responses
//   - orderbridge_throttle_wait_seconds (Histogram): Wait announced by throttled responses
//   - orderbridge_validation_failures_total (Counter): Records rejected before submission
//
// Retry Metrics (pkg/client):
//   - orderbridge_retries_total{policy, error_class} (Counter): Retry attempts
//   - orderbridge_retry_backoff_seconds{policy} (Histogram): Backoff duration
//   - orderbridge_retry_exhausted_total{policy} (Counter): Calls that exhausted their policy
//
// Sync Metrics (cmd/orderctl serve):
//   - orderbridge_sync_runs_total{result} (Counter): Changed-orders sync runs (complete, partial, failed)
//   - orderbridge_sync_orders_total (Counter): Orders returned by sync runs
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(orderbridge_cache_hits_total[5m])) /
//   (sum(rate(orderbridge_cache_hits_total[5m])) + sum(rate(orderbridge_cache_misses_total[5m])))
//
//   # Throttle Rate
//   rate(orderbridge_throttled_total[5m]) / sum(rate(orderbridge_requests_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(orderbridge_request_duration_seconds_bucket[5m]))
//
//   # Exhausted Submissions
//   increase(orderbridge_retry_exhausted_total{policy="submit"}[1h])

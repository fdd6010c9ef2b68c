// Package metrics provides the centralized Prometheus metrics registry for
// the scraper. All metrics are defined in their respective packages
// (fetcher, ratelimit, sink, scraper, journal, archive) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation, reference and the scrape endpoint
// for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the scraper.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving /metrics for Prometheus
// scraping and /health for liveness checks.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// StartServer starts an HTTP server on address using Handler. Blocks until
// the server exits.
func StartServer(address string) error {
	return http.ListenAndServe(address, Handler())
}

// Metrics Documentation
//
// Rate Gate Metrics (pkg/ratelimit):
//   - fpl_inflight_requests (Gauge): Requests currently holding a gate slot
//   - fpl_gate_wait_seconds (Histogram): Time spent waiting for a gate slot
//
// Request Metrics (pkg/fetcher):
//   - fpl_requests_total{status} (Counter): Requests by HTTP status (or network_error)
//   - fpl_request_duration_seconds (Histogram): Request duration
//
// Retry Metrics (pkg/fetcher):
//   - fpl_retries_total{class} (Counter): Retry attempts by error class
//   - fpl_retry_backoff_seconds{class} (Histogram): Backoff duration by error class
//   - fpl_retry_exhausted_total{class} (Counter): Pages that exhausted all attempts
//
// Page Metrics (pkg/scraper):
//   - fpl_pages_total{outcome} (Counter): Pages by final outcome (fetched, failed, skipped, abandoned)
//   - fpl_run_duration_seconds (Histogram): Harvest run duration
//
// Sink Metrics (pkg/sink):
//   - fpl_records_written_total (Counter): Records persisted to the output file
//   - fpl_sink_bytes_total (Counter): Bytes written to the output file
//
// Journal Metrics (pkg/journal):
//   - fpl_journal_marks_total (Counter): Pages marked completed in the journal
//   - fpl_journal_errors_total{operation} (Counter): Journal operation errors
//
// Archive Metrics (pkg/archive):
//   - fpl_archive_uploads_total (Counter): Artifacts uploaded to the archive bucket
//   - fpl_archive_bytes_total (Counter): Bytes uploaded to the archive bucket
//
// Example Prometheus Queries:
//
//   # Page Failure Rate
//   sum(rate(fpl_pages_total{outcome="failed"}[5m])) /
//   sum(rate(fpl_pages_total[5m]))
//
//   # Retry Pressure by Class
//   rate(fpl_retries_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(fpl_request_duration_seconds_bucket[5m]))
//
//   # Gate Saturation
//   fpl_inflight_requests
//
//   # Throughput (records/s)
//   rate(fpl_records_written_total[5m])

// Package qmetrics exposes Prometheus instrumentation for the quad store's
// storage and query-execution subsystems.
package qmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Page cache metrics (C3)
	PageCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quaddb_page_cache_hits_total",
			Help: "Total number of page cache hits",
		},
	)

	PageCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quaddb_page_cache_misses_total",
			Help: "Total number of page cache misses requiring disk I/O",
		},
	)

	PageCacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quaddb_page_cache_evictions_total",
			Help: "Total number of clean pages evicted from the buffer cache",
		},
	)

	PagesDirty = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quaddb_pages_dirty",
			Help: "Current number of dirty pages awaiting checkpoint",
		},
	)

	// WAL metrics (C3)
	WALFsyncTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quaddb_wal_fsync_total",
			Help: "Total number of WAL fsync calls",
		},
	)

	WALFsyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quaddb_wal_fsync_duration_seconds",
			Help:    "Time taken by a WAL fsync call in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CheckpointDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quaddb_checkpoint_duration_seconds",
			Help:    "Time taken by a page-cache checkpoint in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Quad store metrics (C5)
	QuadsAssertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quaddb_quads_asserted_total",
			Help: "Total number of quads asserted across all stores",
		},
	)

	QuadsRetractedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quaddb_quads_retracted_total",
			Help: "Total number of quads retracted across all stores",
		},
	)

	TransactionsCommittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quaddb_transactions_committed_total",
			Help: "Total number of write transactions committed",
		},
	)

	TransactionCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quaddb_transaction_commit_duration_seconds",
			Help:    "Time taken to commit a write transaction in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Store pool metrics (C6)
	StorePoolOpenStores = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quaddb_store_pool_open_stores",
			Help: "Number of stores currently open in the store pool",
		},
	)

	StorePoolEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quaddb_store_pool_evictions_total",
			Help: "Total number of least-recently-used store evictions",
		},
	)

	// Query execution metrics (C9)
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quaddb_query_duration_seconds",
			Help:    "SPARQL query execution duration in seconds by query kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quaddb_queries_total",
			Help: "Total number of SPARQL queries executed by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	TriplePatternsMatchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quaddb_triple_patterns_matched_total",
			Help: "Total number of index tuples scanned while matching triple patterns",
		},
	)

	// Parser metrics (C7/C8)
	ParseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quaddb_parse_errors_total",
			Help: "Total number of parse errors by format",
		},
		[]string{"format"},
	)

	// Update executor metrics (C10)
	UpdateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quaddb_update_duration_seconds",
			Help:    "SPARQL update request execution duration in seconds by operation kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quaddb_updates_total",
			Help: "Total number of SPARQL update operations executed by kind and outcome",
		},
		[]string{"op", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		PageCacheHitsTotal,
		PageCacheMissesTotal,
		PageCacheEvictionsTotal,
		PagesDirty,
		WALFsyncTotal,
		WALFsyncDuration,
		CheckpointDuration,
		QuadsAssertedTotal,
		QuadsRetractedTotal,
		TransactionsCommittedTotal,
		TransactionCommitDuration,
		StorePoolOpenStores,
		StorePoolEvictionsTotal,
		QueryDuration,
		QueriesTotal,
		TriplePatternsMatchedTotal,
		ParseErrorsTotal,
		UpdateDuration,
		UpdatesTotal,
	)
}

// Handler returns the Prometheus scrape HTTP handler, for embedders that
// expose their own metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a small helper for timing operations and recording the elapsed
// duration to a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

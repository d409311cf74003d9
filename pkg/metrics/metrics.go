// Package metrics provides Prometheus metrics for tabular.
//
// Collectors cover the ingestion concerns of this library: rows produced
// by format readers, partitions computed by a session, and the recursion
// depth of the structural flattening transform.
//
// Example:
//
//	metrics.RowsRead.WithLabelValues("csv", "success").Add(float64(n))
//
//	timer := prometheus.NewTimer(metrics.ComputeLatency.WithLabelValues("flatten"))
//	defer timer.ObserveDuration()
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsRead tracks the total number of rows produced by format readers.
	// Labels: format (csv, json, xlsx, parquet, elasticsearch), status (success/failure)
	RowsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabular_rows_read_total",
			Help: "Total number of rows produced by format readers",
		},
		[]string{"format", "status"},
	)

	// PartitionsComputed tracks materialized table partitions.
	// Labels: status (success/failure)
	PartitionsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabular_partitions_computed_total",
			Help: "Total number of table partitions materialized",
		},
		[]string{"status"},
	)

	// ComputeLatency tracks the distribution of partition compute latencies.
	// Labels: operation (read/flatten/project/compute)
	ComputeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabular_compute_latency_seconds",
			Help:    "Partition compute latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 10, 8),
		},
		[]string{"operation"},
	)

	// FlattenDepth tracks how deeply nested the flattened structures were.
	FlattenDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabular_flatten_recursion_depth",
			Help:    "Recursion depth reached by the structural flattening transform",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	// CacheBytes tracks the size of a session's result cache.
	CacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tabular_session_cache_bytes",
			Help: "Bytes currently held by the session result cache",
		},
	)
)

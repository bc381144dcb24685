// Package metrics defines the Prometheus collectors for the search service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	SearchesTotal    *prometheus.CounterVec
	SearchLatency    prometheus.Histogram
	IngestsTotal     *prometheus.CounterVec
	IngestDuration   prometheus.Histogram
	DocumentsIndexed prometheus.Gauge
	ItemsSkipped     prometheus.Counter
}

// New creates and registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_query_duration_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		IngestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_runs_total",
				Help: "Total ingestion runs by status (ok, error).",
			},
			[]string{"status"},
		),
		IngestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_duration_seconds",
				Help:    "Full generation rebuild duration in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		DocumentsIndexed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "documents_indexed",
				Help: "Number of records in the current generation.",
			},
		),
		ItemsSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_items_skipped_total",
				Help: "Snapshot items skipped for missing required fields.",
			},
		),
	}
}

// Package metrics holds the prometheus collectors shared across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerstream_events_published_total",
		Help: "Total number of transaction events published to the broker",
	})

	EventPublishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerstream_event_publish_failures_total",
		Help: "Total number of transaction events that failed to publish",
	})

	ActiveStreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledgerstream_active_stream_clients",
		Help: "Number of currently connected event-stream clients",
	})

	StreamEventsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerstream_stream_events_sent_total",
		Help: "Total number of event frames written to stream clients",
	})

	SummaryCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerstream_summary_cache_hits_total",
		Help: "Summary requests served from the cached snapshot",
	})

	SummaryCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgerstream_summary_cache_misses_total",
		Help: "Summary requests that triggered a fresh aggregation",
	})

	SummaryComputeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledgerstream_summary_compute_duration_seconds",
		Help:    "Time taken to compute a summary snapshot from the ledger",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)

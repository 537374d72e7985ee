// Package telemetry exposes prometheus metrics for the bill pipeline.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters and histograms recorded by the orchestrator.
type Metrics struct {
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	StaleServes     *prometheus.CounterVec
	UpstreamCalls   *prometheus.CounterVec
	UpstreamLatency prometheus.Histogram
}

// NewMetrics registers the pipeline metrics on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billtracker_cache_hits_total",
			Help: "Cache hits by lookup kind.",
		}, []string{"kind"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billtracker_cache_misses_total",
			Help: "Cache misses by lookup kind.",
		}, []string{"kind"}),
		StaleServes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billtracker_cache_stale_serves_total",
			Help: "Requests served from an expired entry after an upstream failure.",
		}, []string{"kind"}),
		UpstreamCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billtracker_upstream_calls_total",
			Help: "Upstream API calls by outcome.",
		}, []string{"outcome"}),
		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "billtracker_upstream_latency_seconds",
			Help:    "Latency of upstream API calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

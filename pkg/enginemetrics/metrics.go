// Package enginemetrics exposes the engine's Prometheus instrumentation
// (spec SPEC_FULL §4.3 AMBIENT STACK). It is adapted from the
// teacher's internal/metrics package, which declared its collectors as
// package-level promauto globals registered against the default
// registry — appropriate for a single-process log shipper that owns
// its own metrics endpoint. This engine is a library embedded into a
// UI process that may construct more than one Trace/Database pair, so
// collectors are instead built per-instance and registered against a
// caller-supplied prometheus.Registerer, the way a reusable component
// is expected to behave.
package enginemetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Timer wraps prometheus.Timer with the constructor name the rest of
// this package's callers expect (ObserveDuration records elapsed
// wall-clock time into the histogram it was built from).
type Timer = prometheus.Timer

// NewTimer starts a Timer against observer, to be stopped with
// ObserveDuration in a defer at the call site.
func NewTimer(observer prometheus.Observer) *Timer {
	return prometheus.NewTimer(observer)
}

// Metrics bundles every collector the loader and database layers
// touch. The zero value is not usable; construct with New.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RowsTotal       *prometheus.CounterVec
	RefCacheHits    prometheus.Counter
	RefCacheMisses  prometheus.Counter
	TracksTotal     prometheus.Gauge
	MemoryFootprint prometheus.Gauge
	Errors          *prometheus.CounterVec
}

// New builds the collector set and registers it against reg. Passing
// a prometheus.NewRegistry() (rather than prometheus.DefaultRegisterer)
// is recommended for embedders that may construct more than one
// engine instance in the same process, avoiding duplicate-registration
// panics across instances.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rocprofvis_loader_requests_total",
			Help: "Total number of loader async requests started, by operation.",
		}, []string{"op"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rocprofvis_loader_duration_seconds",
			Help:    "Duration of loader async requests, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		RowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rocprofvis_loader_rows_total",
			Help: "Total number of rows streamed from SQL into the model, by source table.",
		}, []string{"table"}),
		RefCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rocprofvis_refcache_hits_total",
			Help: "Total number of reference-cache lookups that resolved a cell.",
		}),
		RefCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rocprofvis_refcache_misses_total",
			Help: "Total number of reference-cache lookups that found nothing.",
		}),
		TracksTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rocprofvis_tracks_total",
			Help: "Current number of tracks owned by the trace.",
		}),
		MemoryFootprint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rocprofvis_memory_footprint_bytes",
			Help: "Estimated in-memory footprint of the trace model, in bytes.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rocprofvis_errors_total",
			Help: "Total number of non-success results returned, by component.",
		}, []string{"component"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RowsTotal,
			m.RefCacheHits,
			m.RefCacheMisses,
			m.TracksTotal,
			m.MemoryFootprint,
			m.Errors,
		)
	}
	return m
}

// NoOp returns a Metrics instance that is safe to call but registered
// against no registry, for embedders that don't want Prometheus wired
// up at all.
func NoOp() *Metrics {
	return New(nil)
}

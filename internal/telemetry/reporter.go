// Package telemetry adapts the teacher's prometheus-backed metrics
// package (pkg/metrics, infrastructure/metrics) into the narrow Reporter
// interface the Telemetry interceptor consumes (spec.md §4.6 "Records
// operation duration, success/failure, cache-hit/miss, sync events, and
// errors via an external reporter.").
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Reporter is the external reporter collaborator named in spec.md §4.6.
type Reporter interface {
	OperationDuration(op string, d time.Duration, success bool)
	CacheHit(op string)
	CacheMiss(op string)
	SyncEvent(outcome string)
	Error(op string, code string)
}

// PromReporter implements Reporter on top of prometheus/client_golang,
// grounded on the teacher's pkg/metrics package (CounterVec/HistogramVec
// per labeled dimension, registered once at construction).
type PromReporter struct {
	registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	operationTotal    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	syncEvents        *prometheus.CounterVec
	errors            *prometheus.CounterVec
}

// NewPromReporter registers the engine's collectors against registry and
// returns a Reporter backed by them.
func NewPromReporter(registry *prometheus.Registry) *PromReporter {
	r := &PromReporter{
		registry: registry,
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nexus_store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of store operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"operation", "success"}),
		operationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus_store",
			Name:      "operations_total",
			Help:      "Total store operations.",
		}, []string{"operation", "success"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus_store",
			Name:      "cache_hits_total",
			Help:      "Total cache hits per operation.",
		}, []string{"operation"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus_store",
			Name:      "cache_misses_total",
			Help:      "Total cache misses per operation.",
		}, []string{"operation"}),
		syncEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus_store",
			Name:      "sync_events_total",
			Help:      "Total sync events by outcome.",
		}, []string{"outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus_store",
			Name:      "errors_total",
			Help:      "Total errors by operation and code.",
		}, []string{"operation", "code"}),
	}

	registry.MustRegister(r.operationDuration, r.operationTotal, r.cacheHits, r.cacheMisses, r.syncEvents, r.errors)
	return r
}

func (r *PromReporter) OperationDuration(op string, d time.Duration, success bool) {
	label := "true"
	if !success {
		label = "false"
	}
	r.operationDuration.WithLabelValues(op, label).Observe(d.Seconds())
	r.operationTotal.WithLabelValues(op, label).Inc()
}

func (r *PromReporter) CacheHit(op string)  { r.cacheHits.WithLabelValues(op).Inc() }
func (r *PromReporter) CacheMiss(op string) { r.cacheMisses.WithLabelValues(op).Inc() }
func (r *PromReporter) SyncEvent(outcome string) { r.syncEvents.WithLabelValues(outcome).Inc() }
func (r *PromReporter) Error(op string, code string) { r.errors.WithLabelValues(op, code).Inc() }

// Noop is a Reporter that discards everything, used where telemetry is
// configured off (spec.md Non-goals exclude mandating any specific
// backend, but the interceptor itself is always wired per SPEC_FULL's
// ambient stack).
type Noop struct{}

func (Noop) OperationDuration(op string, d time.Duration, success bool) {}
func (Noop) CacheHit(op string)                                          {}
func (Noop) CacheMiss(op string)                                         {}
func (Noop) SyncEvent(outcome string)                                    {}
func (Noop) Error(op string, code string)                                {}

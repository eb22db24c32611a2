package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

/*
Metrics are registered on an explicit Registerer instead of the global
default one. The dashboard exposes its own registry on /metrics, and tests
build a fresh registry per case so constructors can run more than once in
the same process without "duplicate metrics collector" panics.

- CounterVec: pushed events by name, cache lookups by tag and result,
  workflow transitions by from/to step.

- HistogramVec: REST latency by endpoint, so slow backends show up as
  percentiles and not only as an average.
*/

type ClientMetrics struct {
	EventsReceived      *prometheus.CounterVec
	ReconnectAttempts   prometheus.Counter
	Connected           prometheus.Gauge
	InitialDataMissing  prometheus.Counter
	RequestDuration     *prometheus.HistogramVec
	CacheLookups        *prometheus.CounterVec
	WorkflowTransitions *prometheus.CounterVec
}

func NewClientMetrics(reg prometheus.Registerer, namespace, subsystem string) *ClientMetrics {
	f := promauto.With(reg)
	return &ClientMetrics{
		EventsReceived: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "realtime_events_total",
				Help:      "Total number of events received on the push channel",
			},
			[]string{"event"},
		),
		ReconnectAttempts: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "realtime_reconnect_attempts_total",
				Help:      "Total number of reconnect attempts",
			},
		),
		Connected: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "realtime_connected",
				Help:      "1 while the push channel is connected",
			},
		),
		InitialDataMissing: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "realtime_initial_data_missing_total",
				Help:      "Connections that did not receive initial-data within the grace period",
			},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "api_request_duration_seconds",
				Help:      "Histogram of REST request durations",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
			},
			[]string{"endpoint", "outcome"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by tag and result (hit, miss, stale)",
			},
			[]string{"tag", "result"},
		),
		WorkflowTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "workflow_transitions_total",
				Help:      "Voting workflow step transitions",
			},
			[]string{"from", "to"},
		),
	}
}

// ReplayMetrics instruments the offline replayer.
type ReplayMetrics struct {
	EventsApplied  *prometheus.CounterVec
	EventsRejected prometheus.Counter
	ApplyTime      prometheus.Histogram
}

func NewReplayMetrics(reg prometheus.Registerer, namespace, subsystem string) *ReplayMetrics {
	f := promauto.With(reg)
	return &ReplayMetrics{
		EventsApplied: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_applied_total",
				Help:      "Total number of mirrored store events applied",
			},
			[]string{"event"},
		),
		EventsRejected: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_rejected_total",
				Help:      "Mirrored messages that could not be decoded",
			},
		),
		ApplyTime: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "event_apply_time_seconds",
				Help:      "Histogram of reducer apply times",
				Buckets:   prometheus.LinearBuckets(0.0001, 0.0001, 10), // 0.1ms to 1ms
			},
		),
	}
}

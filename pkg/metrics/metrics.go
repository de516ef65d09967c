// Package metrics exposes the state registry's counters as Prometheus
// metrics, following the pattern set by core/system_health_logging.go
// in the teacher tree (a Metrics struct snapshot, registered once,
// served over promhttp).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the subset of *core.Registry's counters the metrics
// package needs. Kept as an interface so this package doesn't import
// core, avoiding a dependency cycle with anything core might later
// want from metrics.
type Registry interface {
	CountLive() int
	CountCreated() uint64
	CountTimedOut() uint64
}

// StateMetrics wraps the prometheus collectors for one registry
// instance. created_total and timed_out_total are monotonically
// increasing counts, but are exposed as GaugeFuncs rather than
// counters: the registry, not Prometheus, owns the running total, and
// GaugeFunc is the client's supported way to expose a value read
// on-demand from an external source.
type StateMetrics struct {
	live     prometheus.GaugeFunc
	created  prometheus.GaugeFunc
	timedOut prometheus.GaugeFunc
}

// NewStateMetrics builds and registers collectors backed by reg's
// counters against the given registerer (use prometheus.DefaultRegisterer
// in production, a fresh *prometheus.Registry in tests).
func NewStateMetrics(reg Registry, registerer prometheus.Registerer) (*StateMetrics, error) {
	m := &StateMetrics{
		live: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "aaa",
			Subsystem: "state",
			Name:      "live_sessions",
			Help:      "Number of state entries currently live (not yet freed).",
		}, func() float64 { return float64(reg.CountLive()) }),
		created: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "aaa",
			Subsystem: "state",
			Name:      "created_total",
			Help:      "Total number of state entry ids ever assigned (one per minted token, reuse included).",
		}, func() float64 { return float64(reg.CountCreated()) }),
		timedOut: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "aaa",
			Subsystem: "state",
			Name:      "timed_out_total",
			Help:      "Total number of state entries reaped by the expiry sweeper.",
		}, func() float64 { return float64(reg.CountTimedOut()) }),
	}

	for _, c := range []prometheus.Collector{m.live, m.created, m.timedOut} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewFreezeDurationHistogram builds and registers a histogram for the
// wall-clock duration of Registry.Freeze calls. Unlike the counters
// above, a histogram can't be read back lazily from the registry after
// the fact: it must be supplied to core.Config.OnFreeze *before*
// core.New is called, so it is built and registered independently of
// NewStateMetrics.
func NewFreezeDurationHistogram(registerer prometheus.Registerer) (prometheus.Histogram, error) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aaa",
		Subsystem: "state",
		Name:      "freeze_duration_seconds",
		Help:      "Wall-clock duration of Registry.Freeze calls, in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	if err := registerer.Register(h); err != nil {
		return nil, err
	}
	return h, nil
}

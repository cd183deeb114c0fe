// Package metrics exposes Prometheus instrumentation for the suggestion
// engine. A nil *Collector is valid and records nothing, so components can
// take one unconditionally.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "redline"

// Collector holds the engine's Prometheus collectors.
type Collector struct {
	diffDuration prometheus.Histogram
	resolved     *prometheus.CounterVec
	ingested     *prometheus.CounterVec
	corrupt      prometheus.Counter
	dropped      prometheus.Counter
}

// New creates a Collector and registers it with reg.
// Collectors already registered by an earlier Collector are reused.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		diffDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diff_duration_seconds",
			Help:      "Time spent computing suggestion diffs.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_resolved_total",
			Help:      "Tracked changes accepted or rejected, by kind and status.",
		}, []string{"kind", "status"}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_ingested_total",
			Help:      "Tracked changes added from suggestions, by kind.",
		}, []string{"kind"}),
		corrupt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_range_total",
			Help:      "Changes that could not be applied because their range no longer fit the buffer.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remap_dropped_total",
			Help:      "Pending changes discarded because an unrelated edit destroyed their text.",
		}),
	}

	if reg == nil {
		return c, nil
	}

	var err error
	c.diffDuration, err = register(reg, c.diffDuration)
	if err != nil {
		return nil, err
	}
	c.resolved, err = register(reg, c.resolved)
	if err != nil {
		return nil, err
	}
	c.ingested, err = register(reg, c.ingested)
	if err != nil {
		return nil, err
	}
	c.corrupt, err = register(reg, c.corrupt)
	if err != nil {
		return nil, err
	}
	c.dropped, err = register(reg, c.dropped)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// register registers col, returning the existing collector when an identical
// one is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return col, err
	}
	return col, nil
}

// ObserveDiff records the duration of one diff computation.
func (c *Collector) ObserveDiff(d time.Duration) {
	if c == nil {
		return
	}
	c.diffDuration.Observe(d.Seconds())
}

// ChangeResolved counts a change transitioning to a terminal status.
func (c *Collector) ChangeResolved(kind, status string) {
	if c == nil {
		return
	}
	c.resolved.WithLabelValues(kind, status).Inc()
}

// ChangeIngested counts a change added from a suggestion.
func (c *Collector) ChangeIngested(kind string) {
	if c == nil {
		return
	}
	c.ingested.WithLabelValues(kind).Inc()
}

// CorruptRange counts a change whose range no longer fit the buffer.
func (c *Collector) CorruptRange() {
	if c == nil {
		return
	}
	c.corrupt.Inc()
}

// RemapDropped counts changes discarded during a remap.
func (c *Collector) RemapDropped(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.dropped.Add(float64(n))
}

package stream

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "scorenet"

// networkMetrics are the prometheus collectors of a network. Networks registered on the same
// registerer share the collectors.
type networkMetrics struct {
	flushes      prometheus.Counter
	propagations *prometheus.CounterVec
	duration     prometheus.Histogram
}

func newNetworkMetrics(reg prometheus.Registerer) *networkMetrics {
	m := &networkMetrics{
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "flushes_total",
			Help:      "Number of network flushes.",
		}),
		propagations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "propagations_total",
			Help:      "Tuple events delivered downstream by the propagation queues, by node kind and operation.",
		}, []string{"kind", "op"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "flush_duration_seconds",
			Help:      "Duration of network flushes.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
	if reg == nil {
		return m
	}
	m.flushes = register(reg, m.flushes)
	m.propagations = register(reg, m.propagations)
	m.duration = register(reg, m.duration)
	return m
}

// register registers c, or returns the collector already registered under the same name.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		are := prometheus.AlreadyRegisteredError{}
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		// a conflicting collector: keep counting on the unregistered one
	}
	return c
}

func (m *networkMetrics) observeFlush(start time.Time) {
	m.flushes.Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

func (m *networkMetrics) observeQueue(kind NodeKind, s QueueStats) {
	add := func(op string, n int) {
		if n > 0 {
			m.propagations.WithLabelValues(kind.String(), op).Add(float64(n))
		}
	}
	add("insert", s.Inserts)
	add("update", s.Updates)
	add("retract", s.Retracts)
	add("abort", s.Aborts)
}

// Package metrics exposes Prometheus collectors for session lifecycle events.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	started   prometheus.Counter
	created   prometheus.Counter
	written   prometheus.Counter
	rotated   prometheus.Counter
	destroyed prometheus.Counter
	rejected  *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// New registers the session collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		started: factory.NewCounter(prometheus.CounterOpts{
			Name: "satchel_sessions_started_total",
			Help: "Total number of sessions started from a request",
		}),
		created: factory.NewCounter(prometheus.CounterOpts{
			Name: "satchel_sessions_created_total",
			Help: "Total number of fresh session identifiers allocated",
		}),
		written: factory.NewCounter(prometheus.CounterOpts{
			Name: "satchel_sessions_written_total",
			Help: "Total number of payloads persisted",
		}),
		rotated: factory.NewCounter(prometheus.CounterOpts{
			Name: "satchel_sessions_rotated_total",
			Help: "Total number of identifier rotations",
		}),
		destroyed: factory.NewCounter(prometheus.CounterOpts{
			Name: "satchel_sessions_destroyed_total",
			Help: "Total number of sessions destroyed",
		}),
		rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "satchel_payloads_rejected_total",
				Help: "Total number of stored payloads rejected on load by reason",
			},
			[]string{"reason"}, // "missing", "expired", "fingerprint", "identity"
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "satchel_store_failures_total",
				Help: "Total number of storage errors by operation",
			},
			[]string{"op"},
		),
	}
}

func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.started.Inc()
}

func (c *Collector) SessionCreated() {
	if c == nil {
		return
	}
	c.created.Inc()
}

func (c *Collector) PayloadWritten() {
	if c == nil {
		return
	}
	c.written.Inc()
}

func (c *Collector) IDRotated() {
	if c == nil {
		return
	}
	c.rotated.Inc()
}

func (c *Collector) SessionDestroyed() {
	if c == nil {
		return
	}
	c.destroyed.Inc()
}

func (c *Collector) PayloadRejected(reason string) {
	if c == nil {
		return
	}
	c.rejected.WithLabelValues(reason).Inc()
}

func (c *Collector) StoreFailure(op string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(op).Inc()
}

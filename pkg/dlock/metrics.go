package dlock

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultAcquired  = "acquired"
	resultContended = "contended"
	resultReleased  = "released"
	resultNotOwner  = "not_owner"
	resultRenewed   = "renewed"
	resultLost      = "lost"
	resultError     = "error"
)

// Metrics holds the Prometheus collectors for lock operations. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	acquires *prometheus.CounterVec
	releases *prometheus.CounterVec
	renewals *prometheus.CounterVec
	wait     prometheus.Histogram
	held     prometheus.Gauge
}

// NewMetrics creates the lock collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		acquires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dlock_acquire_attempts_total",
			Help: "ACQUIRE script executions by result",
		}, []string{"result"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dlock_release_total",
			Help: "RELEASE script executions by result",
		}, []string{"result"}),
		renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dlock_renewal_total",
			Help: "Lease renewals by result",
		}, []string{"result"}),
		wait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dlock_acquire_wait_seconds",
			Help:    "Time spent waiting for a lock, successful or not",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		held: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dlock_held_locks",
			Help: "Locks this process currently believes it holds",
		}),
	}
	reg.MustRegister(m.acquires, m.releases, m.renewals, m.wait, m.held)

	return m
}

func (m *Metrics) observeAcquire(result string) {
	if m == nil {
		return
	}
	m.acquires.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRelease(result string) {
	if m == nil {
		return
	}
	m.releases.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRenewal(result string) {
	if m == nil {
		return
	}
	m.renewals.WithLabelValues(result).Inc()
}

func (m *Metrics) observeWait(d time.Duration) {
	if m == nil {
		return
	}
	m.wait.Observe(d.Seconds())
}

func (m *Metrics) heldInc() {
	if m == nil {
		return
	}
	m.held.Inc()
}

func (m *Metrics) heldDec() {
	if m == nil {
		return
	}
	m.held.Dec()
}

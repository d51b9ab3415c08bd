package sharedmic

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "sharedmic"

// Metrics exposes the manager's lease lifecycle as Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessionsOpened   prometheus.Counter
	sessionsClosed   prometheus.Counter
	acquireFailures  *prometheus.CounterVec
	deferredSwitches prometheus.Counter
	revocations      prometheus.Counter
	leaseActive      prometheus.Gauge
	refCount         prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "hardware_sessions_opened_total",
			Help:      "Number of hardware capture sessions opened.",
		}),
		sessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "hardware_sessions_closed_total",
			Help:      "Number of hardware capture sessions torn down or revoked.",
		}),
		acquireFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "acquire_failures_total",
			Help:      "Number of acquire calls the platform refused, by reason.",
		}, []string{"reason"}),
		deferredSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "deferred_switches_total",
			Help:      "Number of device switches deferred because the lease was busy.",
		}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "device_revocations_total",
			Help:      "Number of leases whose device ended outside of the manager's control.",
		}),
		leaseActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "lease_active",
			Help:      "1 while a hardware lease is held, 0 otherwise.",
		}),
		refCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "lease_ref_count",
			Help:      "Outstanding borrows on the current lease.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.sessionsOpened, m.sessionsClosed, m.acquireFailures,
		m.deferredSwitches, m.revocations, m.leaseActive, m.refCount,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.sessionsOpened.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.sessionsClosed.Inc()
}

func (m *Metrics) acquireFailed(err error) {
	if m == nil {
		return
	}
	m.acquireFailures.WithLabelValues(failureReason(err)).Inc()
}

func (m *Metrics) deferredSwitch() {
	if m == nil {
		return
	}
	m.deferredSwitches.Inc()
}

func (m *Metrics) revoked() {
	if m == nil {
		return
	}
	m.revocations.Inc()
}

func (m *Metrics) setLease(l *lease) {
	if m == nil {
		return
	}
	if l == nil {
		m.leaseActive.Set(0)
		m.refCount.Set(0)
		return
	}
	m.leaseActive.Set(1)
	m.refCount.Set(float64(l.refCount))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotReadable):
		return "not_readable"
	default:
		return "other"
	}
}

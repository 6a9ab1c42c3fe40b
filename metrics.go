package lobby

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RegistrationMetrics instruments registration attempts. The in flight
// gauge mirrors the loading flag shown by the register modal.
type RegistrationMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	orphans  *prometheus.CounterVec
}

// NewRegistrationMetrics registers the collectors with reg, reusing
// collectors already registered under the same names. A nil reg uses the
// default registerer.
func NewRegistrationMetrics(reg prometheus.Registerer) *RegistrationMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &RegistrationMetrics{
		attempts: registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lobby",
			Subsystem: "registration",
			Name:      "attempts_total",
			Help:      "Registration attempts by flow, provider and outcome.",
		}, []string{"flow", "provider", "outcome"})),
		duration: registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lobby",
			Subsystem: "registration",
			Name:      "duration_seconds",
			Help:      "Registration attempt latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow", "outcome"})),
		inFlight: registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lobby",
			Subsystem: "registration",
			Name:      "in_flight",
			Help:      "Registration attempts waiting on the identity provider or backend.",
		}, []string{"flow"})),
		orphans: registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lobby",
			Subsystem: "registration",
			Name:      "orphaned_identities_total",
			Help:      "Identities left without an application user record.",
		}, []string{"provider", "handled"})),
	}
}

func (m *RegistrationMetrics) loading(flow Flow, on bool) {
	if m == nil {
		return
	}
	g := m.inFlight.WithLabelValues(string(flow))
	if on {
		g.Inc()
		return
	}
	g.Dec()
}

func (m *RegistrationMetrics) observe(a *Attempt) {
	if m == nil || a == nil {
		return
	}
	outcome := string(a.Outcome())
	m.attempts.WithLabelValues(string(a.Flow()), string(a.Provider()), outcome).Inc()
	m.duration.WithLabelValues(string(a.Flow()), outcome).Observe(a.Duration().Seconds())
}

func (m *RegistrationMetrics) orphan(provider ProviderKind, handled bool) {
	if m == nil {
		return
	}
	m.orphans.WithLabelValues(string(provider), boolLabel(handled)).Inc()
}

// AttemptsCounter returns the attempts counter for a label set.
func (m *RegistrationMetrics) AttemptsCounter(flow Flow, provider ProviderKind, outcome Outcome) prometheus.Counter {
	return m.attempts.WithLabelValues(string(flow), string(provider), string(outcome))
}

// InFlightGauge returns the loading gauge for a flow.
func (m *RegistrationMetrics) InFlightGauge(flow Flow) prometheus.Gauge {
	return m.inFlight.WithLabelValues(string(flow))
}

// OrphansCounter returns the orphan counter for a label set.
func (m *RegistrationMetrics) OrphansCounter(provider ProviderKind, handled bool) prometheus.Counter {
	return m.orphans.WithLabelValues(string(provider), boolLabel(handled))
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}

func registerHistogramVec(reg prometheus.Registerer, c *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
	}
	return c
}

func registerGaugeVec(reg prometheus.Registerer, c *prometheus.GaugeVec) *prometheus.GaugeVec {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing
			}
		}
	}
	return c
}


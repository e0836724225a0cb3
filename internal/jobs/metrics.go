package jobs

import "github.com/prometheus/client_golang/prometheus"

// Metrics records job outcomes. A nil *Metrics records nothing.
type Metrics struct {
	total    *prometheus.CounterVec
	inFlight prometheus.Gauge
}

// NewMetrics creates job metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projdoc",
			Name:      "jobs_total",
			Help:      "Background jobs by final outcome.",
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "projdoc",
			Name:      "jobs_in_flight",
			Help:      "Background jobs enqueued or running.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.total, m.inFlight)
	}
	return m
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) finished(status Status) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.total.WithLabelValues(status.String()).Inc()
}

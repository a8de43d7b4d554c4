package tenant

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters the coordinator reports. All fields are
// optional; nil metrics are skipped.
type Metrics struct {
	ResolutionsTotal   *prometheus.CounterVec // label: source
	RejectionsTotal    *prometheus.CounterVec // label: reason
	BypassTotal        prometheus.Counter
	ConnsPoisonedTotal prometheus.Counter
}

func (m *Metrics) resolution(source Source) {
	if m != nil && m.ResolutionsTotal != nil {
		m.ResolutionsTotal.WithLabelValues(string(source)).Inc()
	}
}

func (m *Metrics) rejection(reason RejectReason) {
	if m != nil && m.RejectionsTotal != nil {
		m.RejectionsTotal.WithLabelValues(string(reason)).Inc()
	}
}

func (m *Metrics) bypass() {
	if m != nil && m.BypassTotal != nil {
		m.BypassTotal.Inc()
	}
}

func (m *Metrics) poisoned() {
	if m != nil && m.ConnsPoisonedTotal != nil {
		m.ConnsPoisonedTotal.Inc()
	}
}

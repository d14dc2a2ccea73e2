package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UnregisteredAction is the single label for actions with no handler.
const UnregisteredAction = "UNREGISTERED"

type Metrics struct {
	envelopes *prometheus.CounterVec
	actions   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		envelopes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "executor",
			Name:      "envelopes_total",
			Help:      "Received action envelopes by verification outcome.",
		}, []string{"outcome"}),
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "executor",
			Name:      "actions_total",
			Help:      "Executed actions by name and result.",
		}, []string{"action", "ok"}),
	}
}

func (m *Metrics) Envelope(outcome string) {
	if m == nil {
		return
	}
	m.envelopes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Action(action string, ok bool) {
	if m == nil {
		return
	}
	label := "false"
	if ok {
		label = "true"
	}
	m.actions.WithLabelValues(action, label).Inc()
}

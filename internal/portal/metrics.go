package portal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OtherAction is the label for action names outside the known set.
const OtherAction = "OTHER"

type Metrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
	known   map[string]bool
}

// NewMetrics labels the built-in actions plus extraActions by name; any
// other action is counted under OtherAction.
func NewMetrics(reg prometheus.Registerer, extraActions ...string) *Metrics {
	known := map[string]bool{
		ActionPing:              true,
		ActionPublishCurriculum: true,
		ActionAwardXP:           true,
		ActionDrawRaffle:        true,
		ActionEvaluateQuest:     true,
	}
	for _, a := range extraActions {
		known[a] = true
	}
	f := promauto.With(reg)
	return &Metrics{
		known: known,
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "action_calls_total",
			Help:      "Signed action calls by action and outcome.",
		}, []string{"action", "outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "action_call_duration_seconds",
			Help:      "Round trip time of signed action calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}
}

func (m *Metrics) observe(action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if !m.known[action] {
		action = OtherAction
	}
	m.calls.WithLabelValues(action, outcome).Inc()
	m.latency.WithLabelValues(action).Observe(d.Seconds())
}

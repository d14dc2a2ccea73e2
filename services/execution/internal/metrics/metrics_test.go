package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Envelope("verified")
	m.Envelope("verified")
	m.Envelope("bad_signature")
	m.Action("PING", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.envelopes.WithLabelValues("verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.envelopes.WithLabelValues("bad_signature")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("PING", "true")))

	var nilMetrics *Metrics
	nilMetrics.Envelope("verified")
	nilMetrics.Action("PING", false)
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAccess("allow")
	m.ObserveAccess("allow")
	m.ObserveAccess("not_registered")
	m.ObserveLedgerAppend("ok", 120*time.Millisecond)
	m.ObserveNotification("failed")
	m.IncrementPanics()
	m.SetBreakerOpen(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AccessDecisions.WithLabelValues("allow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessDecisions.WithLabelValues("not_registered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerAppends.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerPanics))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerStateOpen))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAccess("allow")
		m.ObserveRegistration("created")
		m.ObserveReview("approved")
		m.ObserveLedgerAppend("ok", time.Second)
		m.ObserveNotification("ok")
		m.ObserveUpdate("command")
		m.IncrementPanics()
		m.SetBreakerOpen(false)
	})
}

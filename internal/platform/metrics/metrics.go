package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bot's Prometheus collectors. A nil *Metrics is valid and
// records nothing, so services can run without one in tests.
type Metrics struct {
	AccessDecisions  *prometheus.CounterVec
	Registrations    *prometheus.CounterVec
	ReviewDecisions  *prometheus.CounterVec
	LedgerAppends    *prometheus.CounterVec
	LedgerLatency    prometheus.Histogram
	Notifications    *prometheus.CounterVec
	UpdatesHandled   *prometheus.CounterVec
	HandlerPanics    prometheus.Counter
	BreakerStateOpen prometheus.Gauge
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AccessDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerbot_access_decisions_total",
			Help: "Access checks by result (allow or the deny reason)",
		}, []string{"result"}),
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerbot_registrations_total",
			Help: "Registration submissions by outcome",
		}, []string{"outcome"}),
		ReviewDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerbot_review_decisions_total",
			Help: "Administrator review decisions by outcome",
		}, []string{"outcome"}),
		LedgerAppends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerbot_ledger_appends_total",
			Help: "Ledger append attempts by result",
		}, []string{"result"}),
		LedgerLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerbot_ledger_append_duration_seconds",
			Help:    "Time spent appending a row and reading balances",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerbot_notifications_total",
			Help: "Per-recipient notification deliveries by result",
		}, []string{"result"}),
		UpdatesHandled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerbot_updates_handled_total",
			Help: "Inbound chat actions by kind",
		}, []string{"kind"}),
		HandlerPanics: f.NewCounter(prometheus.CounterOpts{
			Name: "ledgerbot_handler_panics_total",
			Help: "Recovered panics in update handlers",
		}),
		BreakerStateOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerbot_ledger_breaker_open",
			Help: "1 when the ledger circuit breaker is open",
		}),
	}
}

func (m *Metrics) ObserveAccess(result string) {
	if m == nil {
		return
	}
	m.AccessDecisions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveReview(outcome string) {
	if m == nil {
		return
	}
	m.ReviewDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLedgerAppend(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LedgerAppends.WithLabelValues(result).Inc()
	m.LedgerLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveNotification(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveUpdate(kind string) {
	if m == nil {
		return
	}
	m.UpdatesHandled.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementPanics() {
	if m == nil {
		return
	}
	m.HandlerPanics.Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerStateOpen.Set(1)
		return
	}
	m.BreakerStateOpen.Set(0)
}

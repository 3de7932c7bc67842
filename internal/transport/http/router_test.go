package httptransport

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"ledgerbot/internal/platform/metrics"
	tu "ledgerbot/pkg/testutil"
)

func ok(context.Context) error { return nil }

func TestHealthz(t *testing.T) {
	h := NewHandler(prometheus.NewRegistry(), WithLogger(tu.DiscardLogger()),
		WithCheck("postgres", func(context.Context) error { return errors.New("down") }))
	rr := tu.DoRequest(NewRouter(h), http.MethodGet, "/healthz")
	tu.AssertStatus(t, rr, http.StatusOK)
}

func TestReadyz(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		h := NewHandler(prometheus.NewRegistry(), WithLogger(tu.DiscardLogger()),
			WithCheck("postgres", ok),
			WithCheck("redis", ok),
		)
		rr := tu.DoRequest(NewRouter(h), http.MethodGet, "/readyz")
		tu.AssertStatus(t, rr, http.StatusOK)
		body := tu.UnmarshalResponse[readiness](t, rr)
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Checks)
	})

	t.Run("one failing check fails readiness", func(t *testing.T) {
		h := NewHandler(prometheus.NewRegistry(), WithLogger(tu.DiscardLogger()),
			WithCheck("postgres", ok),
			WithCheck("kafka", func(context.Context) error { return errors.New("no brokers") }),
			WithCheck("absent", nil),
		)
		rr := tu.DoRequest(NewRouter(h), http.MethodGet, "/readyz")
		tu.AssertStatus(t, rr, http.StatusServiceUnavailable)
		body := tu.UnmarshalResponse[readiness](t, rr)
		assert.Equal(t, "unavailable", body.Status)
		assert.Equal(t, "no brokers", body.Checks["kafka"])
		assert.NotContains(t, body.Checks, "absent")
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveUpdate("command")

	rr := tu.DoRequest(NewRouter(NewHandler(reg)), http.MethodGet, "/metrics")
	tu.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), "updates_handled_total")
}

func TestUnknownRoute(t *testing.T) {
	rr := tu.DoRequest(NewRouter(NewHandler(prometheus.NewRegistry())), http.MethodGet, "/auth/token")
	tu.AssertStatus(t, rr, http.StatusNotFound)
}

// Package metrics exposes Prometheus counters for the interesting business
// events: sign-ins, registrations, dispense decisions and outgoing email.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Logins           *prometheus.CounterVec
	Registrations    *prometheus.CounterVec
	DispenseDecision *prometheus.CounterVec
	EmailsSent       *prometheus.CounterVec
	TokenRefreshes   *prometheus.CounterVec
	Panics           prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dosehub_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dosehub_registrations_total",
			Help: "Registration steps completed.",
		}, []string{"step"}),
		DispenseDecision: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dosehub_dispense_decisions_total",
			Help: "Dispense authorization decisions by outcome.",
		}, []string{"allowed", "reason"}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dosehub_emails_sent_total",
			Help: "Outgoing email attempts by kind and result.",
		}, []string{"kind", "result"}),
		TokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dosehub_token_refreshes_total",
			Help: "Refresh token rotations by result.",
		}, []string{"result"}),
		Panics: factory.NewCounter(prometheus.CounterOpts{
			Name: "dosehub_panics_recovered_total",
			Help: "Handler panics recovered by the HTTP middleware.",
		}),
	}
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

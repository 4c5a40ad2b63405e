// Package metrics exposes account lifecycle counters to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-accounts"
)

// ActivityCounter is an accounts.ActivitySink that counts events by type
// and the state they left the account in.
type ActivityCounter struct {
	events        *prometheus.CounterVec
	loginFailures *prometheus.CounterVec
}

var _ accounts.ActivitySink = (*ActivityCounter)(nil)

// NewActivityCounter creates the counters and registers them with reg.
func NewActivityCounter(reg prometheus.Registerer) *ActivityCounter {
	c := &ActivityCounter{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_activity_events_total",
				Help: "Total number of account lifecycle events by type and resulting state",
			},
			[]string{"event", "state"},
		),
		loginFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_login_failures_total",
				Help: "Total number of rejected logins by reason",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(c.events)
	reg.MustRegister(c.loginFailures)

	return c
}

// Record implements accounts.ActivitySink.
func (c *ActivityCounter) Record(_ context.Context, event accounts.ActivityEvent) error {
	c.events.WithLabelValues(string(event.EventType), string(event.ToState)).Inc()

	if event.EventType == accounts.ActivityEventLoginFailure {
		reason, _ := event.Metadata["reason"].(string)
		if reason == "" {
			reason = "unknown"
		}
		c.loginFailures.WithLabelValues(reason).Inc()
	}

	return nil
}

// NewRegistry returns a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

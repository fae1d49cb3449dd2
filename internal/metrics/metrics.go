// Package metrics holds the prometheus collectors for the acquisition flow and
// the backend client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fidash"

// Acquisition counts login flows by outcome and polls by result.
type Acquisition struct {
	Outcomes *prometheus.CounterVec
	Polls    *prometheus.CounterVec
}

// Backend counts requests issued to the backend by endpoint and status class.
type Backend struct {
	Requests *prometheus.CounterVec
}

// Registry bundles every collector with the registry they are registered on.
type Registry struct {
	reg         *prometheus.Registry
	Acquisition *Acquisition
	Backend     *Backend
}

func New() *Registry {
	reg := prometheus.NewRegistry()

	acq := &Acquisition{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "flows_total",
			Help:      "Login acquisition flows by terminal outcome.",
		}, []string{"outcome"}),
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "polls_total",
			Help:      "Login poll requests by result.",
		}, []string{"result"}),
	}
	be := &Backend{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Authenticated backend requests by endpoint and status.",
		}, []string{"endpoint", "status"}),
	}

	reg.MustRegister(acq.Outcomes, acq.Polls, be.Requests)

	return &Registry{reg: reg, Acquisition: acq, Backend: be}
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (a *Acquisition) Outcome(outcome string) {
	if a == nil {
		return
	}
	a.Outcomes.WithLabelValues(outcome).Inc()
}

func (a *Acquisition) Poll(result string) {
	if a == nil {
		return
	}
	a.Polls.WithLabelValues(result).Inc()
}

func (b *Backend) Request(endpoint, status string) {
	if b == nil {
		return
	}
	b.Requests.WithLabelValues(endpoint, status).Inc()
}

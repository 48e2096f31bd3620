// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/flowzen/flowzen/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flowzen"

// Outcome labels of flowzen_actions_total.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailure = "failure"
)

type Metrics struct {
	registry *prometheus.Registry

	Actions     *prometheus.CounterVec
	Connections *prometheus.CounterVec
	Events      *prometheus.CounterVec
}

// New registers every collector on a fresh registry, plus the Go and process
// collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Action executions by node type and outcome.",
		}, []string{"node_type", "outcome"}),
		Connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connect calls by connection type and whether a binding was created.",
		}, []string{"connection_type", "created"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events received from the event bus by type.",
		}, []string{"event_type"}),
	}

	registry.MustRegister(
		m.Actions,
		m.Connections,
		m.Events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAction(nodeType, outcome string) {
	m.Actions.WithLabelValues(nodeType, outcome).Inc()
}

func (m *Metrics) ObserveConnect(connectionType string, created bool) {
	label := "false"
	if created {
		label = "true"
	}

	m.Connections.WithLabelValues(connectionType, label).Inc()
}

// RecordEvent counts an event delivered by the bus. It matches the
// eventbus.EventHandler signature.
func (m *Metrics) RecordEvent(_ context.Context, event any) error {
	typed, ok := event.(interface{ GetType() events.EventType })
	if ok {
		m.Events.WithLabelValues(string(typed.GetType())).Inc()
	}

	return nil
}

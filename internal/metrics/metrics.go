package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for stackwarden's event watcher.
type Metrics struct {
	registry           *prometheus.Registry
	processEventsTotal *prometheus.CounterVec
	journalErrorsTotal prometheus.Counter
	lastEventTimestamp prometheus.Gauge
	eventsHandledTotal prometheus.Counter
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		processEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackwarden_process_events_total",
			Help: "Unexpected process terminations by service and event type.",
		}, []string{"service", "event"}),
		journalErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackwarden_journal_errors_total",
			Help: "Journal append failures in the event watcher.",
		}),
		lastEventTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackwarden_last_event_timestamp",
			Help: "Unix timestamp of the last consumed event.",
		}),
		eventsHandledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackwarden_events_handled_total",
			Help: "Total events consumed from the process controller.",
		}),
	}

	registry.MustRegister(
		m.processEventsTotal,
		m.journalErrorsTotal,
		m.lastEventTimestamp,
		m.eventsHandledTotal,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncProcessEvents counts one unexpected process termination.
func (m *Metrics) IncProcessEvents(service, event string) {
	if m == nil {
		return
	}
	m.processEventsTotal.WithLabelValues(service, event).Inc()
}

// IncJournalErrors counts one failed journal append.
func (m *Metrics) IncJournalErrors() {
	if m == nil {
		return
	}
	m.journalErrorsTotal.Inc()
}

// ObserveEventHandled records one consumed event.
func (m *Metrics) ObserveEventHandled(at time.Time) {
	if m == nil {
		return
	}
	m.eventsHandledTotal.Inc()
	m.lastEventTimestamp.Set(float64(at.Unix()))
}

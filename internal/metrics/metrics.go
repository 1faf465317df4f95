package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "giftcard_console"

// Cache lookup results.
const (
	LookupHit   = "hit"
	LookupStale = "stale"
	LookupMiss  = "miss"
)

// Outcome labels for fetches and mutations.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics exposes client-side instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	realtimeEvents    *prometheus.CounterVec
	connectionChanges *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	fetches           *prometheus.CounterVec
	mutations         *prometheus.CounterVec
}

// New registers all instruments on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		realtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_total",
			Help:      "Domain events received from the socket server.",
		}, []string{"role", "event"}),
		connectionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_transitions_total",
			Help:      "Connection status transitions per role.",
		}, []string{"role", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Query cache lookups by resource kind and result.",
		}, []string{"kind", "result"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fetches_total",
			Help:      "Network fetches issued by the query cache.",
		}, []string{"kind", "outcome"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Mutations issued against the REST API.",
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(
		m.realtimeEvents,
		m.connectionChanges,
		m.cacheLookups,
		m.fetches,
		m.mutations,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RealtimeEvent counts a received domain event.
func (m *Metrics) RealtimeEvent(role, event string) {
	if m == nil {
		return
	}
	m.realtimeEvents.WithLabelValues(role, event).Inc()
}

// ConnectionTransition counts a status change.
func (m *Metrics) ConnectionTransition(role, status string) {
	if m == nil {
		return
	}
	m.connectionChanges.WithLabelValues(role, status).Inc()
}

// CacheLookup counts a cache read.
func (m *Metrics) CacheLookup(kind, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

// Fetch counts a completed network fetch.
func (m *Metrics) Fetch(kind string, err error) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(kind, outcome(err)).Inc()
}

// Mutation counts a completed mutation.
func (m *Metrics) Mutation(operation string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// CacheLookupCounter returns the counter behind CacheLookup for kind and
// result.
func (m *Metrics) CacheLookupCounter(kind, result string) prometheus.Counter {
	return m.cacheLookups.WithLabelValues(kind, result)
}

// MutationCounter returns the counter behind Mutation for operation and
// outcome.
func (m *Metrics) MutationCounter(operation, outcome string) prometheus.Counter {
	return m.mutations.WithLabelValues(operation, outcome)
}

// ConnectionCounter returns the counter behind ConnectionTransition.
func (m *Metrics) ConnectionCounter(role, status string) prometheus.Counter {
	return m.connectionChanges.WithLabelValues(role, status)
}

// Package metrics exposes ledger and HTTP counters through Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry        *prometheus.Registry
	operations      *prometheus.CounterVec
	persistFailures prometheus.Counter
	httpRequests    *prometheus.CounterVec
	published       *prometheus.CounterVec
	mirrored        *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by name and result.",
		}, []string{"op", "result"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_persist_failures_total",
			Help: "Mutations kept in memory because the store write failed.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_events_published_total",
			Help: "Change events sent to the broker, by result.",
		}, []string{"result"}),
		mirrored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_mirror_syncs_total",
			Help: "Spreadsheet mirror syncs, by result.",
		}, []string{"result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kv_cache_lookups_total",
			Help: "KV cache reads, by hit or miss.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.operations,
		m.persistFailures,
		m.httpRequests,
		m.published,
		m.mirrored,
		m.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOperation implements ledger.Recorder.
func (m *Metrics) ObserveOperation(op, result string) {
	m.operations.WithLabelValues(op, result).Inc()
}

// ObservePersistFailure implements ledger.Recorder.
func (m *Metrics) ObservePersistFailure() {
	m.persistFailures.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, code int) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) ObservePublish(ok bool) {
	m.published.WithLabelValues(resultLabel(ok)).Inc()
}

func (m *Metrics) ObserveMirror(ok bool) {
	m.mirrored.WithLabelValues(resultLabel(ok)).Inc()
}

// ObserveCacheLookup implements cache.Observer.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

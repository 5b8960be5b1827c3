// Package metrics exposes Prometheus collectors for HTTP traffic and
// document persistence. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "assetmanager"

// Document operation results
const (
	ResultOK      = "ok"
	ResultMissing = "missing"
	ResultCorrupt = "corrupt"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Metrics holds the application collectors and their registry
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	documentLoads   *prometheus.CounterVec
	documentSaves   *prometheus.CounterVec
	documentSize    prometheus.Gauge
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		documentLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_loads_total",
				Help:      "Document reads by result",
			},
			[]string{"result"},
		),
		documentSaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_saves_total",
				Help:      "Document writes by result",
			},
			[]string{"result"},
		),
		documentSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "document_size_bytes",
				Help:      "Size of the last successfully written document",
			},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.documentLoads,
		m.documentSaves,
		m.documentSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// DocumentLoads returns the document read counter
func (m *Metrics) DocumentLoads() *prometheus.CounterVec {
	return m.documentLoads
}

// DocumentSaves returns the document write counter
func (m *Metrics) DocumentSaves() *prometheus.CounterVec {
	return m.documentSaves
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request. path should be the route
// pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLoad counts a document read
func (m *Metrics) RecordLoad(result string) {
	if m == nil {
		return
	}
	m.documentLoads.WithLabelValues(result).Inc()
}

// RecordSave counts a document write; size is only tracked on success
func (m *Metrics) RecordSave(result string, size int) {
	if m == nil {
		return
	}
	m.documentSaves.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.documentSize.Set(float64(size))
	}
}

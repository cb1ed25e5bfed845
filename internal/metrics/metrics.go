// Package metrics defines the Prometheus collectors of the index and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nonibytes/textindex/textindex"
)

// Metrics holds all collectors. It implements textindex.Observer.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	DocsAddedTotal    prometheus.Counter
	DocsRemovedTotal  prometheus.Counter
	FanOutTruncations prometheus.Counter
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter

	gatherer prometheus.Gatherer
}

var _ textindex.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg. A nil reg uses
// a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textindex_operations_total",
				Help: "Index operations by operation and status.",
			},
			[]string{"op", "status"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "textindex_operation_duration_seconds",
				Help:    "Index operation latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"op"},
		),
		DocsAddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "textindex_documents_added_total",
			Help: "Documents created by add.",
		}),
		DocsRemovedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "textindex_documents_removed_total",
			Help: "Documents deleted by remove.",
		}),
		FanOutTruncations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "textindex_fanout_truncations_total",
			Help: "Query branches that hit the entry fan-out cap.",
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "textindex_result_cache_hits_total",
			Help: "Result cache hits.",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "textindex_result_cache_misses_total",
			Help: "Result cache misses.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.DocsAddedTotal,
		m.DocsRemovedTotal,
		m.FanOutTruncations,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)
	return m
}

func (m *Metrics) ObserveOperation(op string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) DocumentsAdded(n int)   { m.DocsAddedTotal.Add(float64(n)) }
func (m *Metrics) DocumentsRemoved(n int) { m.DocsRemovedTotal.Add(float64(n)) }
func (m *Metrics) FanOutTruncated()       { m.FanOutTruncations.Inc() }

func (m *Metrics) CacheLookup(hit bool) {
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

// Handler returns the scrape handler for the registry the collectors live
// in.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

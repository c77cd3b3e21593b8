// Package metrics exposes Prometheus collectors for the roster engine.
//
// Counters:
//   - roster_suggestions_created_total: suggested rows written by generation
//   - roster_reconciliations_total: reconcile runs
//   - roster_services_changed_total: services whose rows a reconcile touched
//   - roster_rank_reports_total: read-only ranking reports served
//
// Histogram:
//   - roster_operation_duration_seconds{operation}: engine call latency
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OpGenerate  = "generate"
	OpReconcile = "reconcile"
	OpRank      = "rank"
)

// Collector holds the engine metrics
type Collector struct {
	suggestionsCreated prometheus.Counter
	reconciliations    prometheus.Counter
	servicesChanged    prometheus.Counter
	rankReports        prometheus.Counter

	duration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewCollector creates the collectors and registers them on reg.
// A nil reg uses a private registry.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		suggestionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_suggestions_created_total",
			Help: "Total number of suggested assignments created by generation",
		}),
		reconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_reconciliations_total",
			Help: "Total number of reconcile runs",
		}),
		servicesChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_services_changed_total",
			Help: "Total number of services changed by reconciliation",
		}),
		rankReports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_rank_reports_total",
			Help: "Total number of ranking reports served",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_operation_duration_seconds",
			Help:    "Engine operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		gatherer: reg,
	}

	reg.MustRegister(
		c.suggestionsCreated,
		c.reconciliations,
		c.servicesChanged,
		c.rankReports,
		c.duration,
	)
	return c
}

// RecordGenerate records one generation run
func (c *Collector) RecordGenerate(created int, elapsed time.Duration) {
	c.suggestionsCreated.Add(float64(created))
	c.duration.WithLabelValues(OpGenerate).Observe(elapsed.Seconds())
}

// RecordReconcile records one reconcile run and the services it changed
func (c *Collector) RecordReconcile(changed int, elapsed time.Duration) {
	c.reconciliations.Inc()
	c.servicesChanged.Add(float64(changed))
	c.duration.WithLabelValues(OpReconcile).Observe(elapsed.Seconds())
}

// RecordRank records one ranking report
func (c *Collector) RecordRank(elapsed time.Duration) {
	c.rankReports.Inc()
	c.duration.WithLabelValues(OpRank).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

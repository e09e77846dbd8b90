// internal/monitoring/metrics.go

// Package monitoring exposes run progress as Prometheus metrics and serves
// the /metrics and /health HTTP endpoints.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// Metrics bundles Prometheus collectors for the extraction engine on a
// dedicated registry.
type Metrics struct {
	Registry         *prometheus.Registry
	TasksTotal       *prometheus.CounterVec
	ProductsTotal    *prometheus.CounterVec
	DomainsTotal     *prometheus.CounterVec
	DomainDuration   prometheus.Histogram
	ConcurrencyBound prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	tasks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_tasks_total",
			Help: "Extraction tasks processed, by site and outcome.",
		},
		[]string{"site", "outcome"},
	)
	products := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_products_total",
			Help: "Product records extracted, by site.",
		},
		[]string{"site"},
	)
	domains := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_domain_batches_total",
			Help: "Domain batches finished, by site and status.",
		},
		[]string{"site", "status"},
	)
	domainDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricewatch_domain_batch_duration_seconds",
			Help:    "Wall time of one domain batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
	bound := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricewatch_concurrency_bound",
			Help: "Current adaptive concurrency bound.",
		},
	)

	registry.MustRegister(tasks, products, domains, domainDuration, bound)

	return &Metrics{
		Registry:         registry,
		TasksTotal:       tasks,
		ProductsTotal:    products,
		DomainsTotal:     domains,
		DomainDuration:   domainDuration,
		ConcurrencyBound: bound,
	}
}

// TaskProcessed records one finished extraction task.
func (m *Metrics) TaskProcessed(siteID string, product bool, failed bool) {
	if m == nil {
		return
	}
	outcome := "non_product"
	switch {
	case failed:
		outcome = "error"
	case product:
		outcome = "product"
	}
	m.TasksTotal.WithLabelValues(siteID, outcome).Inc()
	if product {
		m.ProductsTotal.WithLabelValues(siteID).Inc()
	}
}

// DomainFinished records one finished domain batch.
func (m *Metrics) DomainFinished(siteID string, status types.ScrapeStatus, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DomainsTotal.WithLabelValues(siteID, string(status)).Inc()
	m.DomainDuration.Observe(elapsed.Seconds())
}

// SetBound tracks the governor's current bound.
func (m *Metrics) SetBound(bound int) {
	if m == nil {
		return
	}
	m.ConcurrencyBound.Set(float64(bound))
}

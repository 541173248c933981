// Package observe exposes the service's Prometheus metrics, including the
// reconciliation counters operators use to detect manifest drift.
package observe

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voltguard/internal/reconcile"
)

// Metrics owns a private registry so tests and embedded uses never collide
// on global registration.
type Metrics struct {
	registry *prometheus.Registry

	recordsTotal     prometheus.Counter
	resolutionsTotal *prometheus.CounterVec
	schemaGapsTotal  *prometheus.CounterVec
	verdictsTotal    *prometheus.CounterVec
	overridesTotal   prometheus.Counter
	scoreDuration    prometheus.Histogram
}

// NewMetrics builds and registers the metric set.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voltguard_records_total",
			Help: "Total telemetry records reconciled.",
		}),
		resolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voltguard_feature_resolutions_total",
			Help: "Feature resolutions by rule that populated the value.",
		}, []string{"rule"}),
		schemaGapsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voltguard_schema_gaps_total",
			Help: "Manifest features that fell through every resolution rule, by feature. A feature that only ever appears here signals schema drift upstream.",
		}, []string{"feature"}),
		verdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voltguard_verdicts_total",
			Help: "Verdicts emitted by status.",
		}, []string{"status"}),
		overridesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voltguard_safety_overrides_total",
			Help: "Verdicts escalated by a physical safety limit.",
		}),
		scoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voltguard_batch_duration_seconds",
			Help:    "End-to-end duration of one prediction batch.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.recordsTotal,
		m.resolutionsTotal,
		m.schemaGapsTotal,
		m.verdictsTotal,
		m.overridesTotal,
		m.scoreDuration,
	)
	return m
}

// Resolution implements reconcile.Observer.
func (m *Metrics) Resolution(feature string, rule reconcile.Rule) {
	m.resolutionsTotal.WithLabelValues(string(rule)).Inc()
	if rule == reconcile.RuleFallback {
		m.schemaGapsTotal.WithLabelValues(feature).Inc()
	}
}

// RecordReconciled counts one reconciled record.
func (m *Metrics) RecordReconciled() { m.recordsTotal.Inc() }

// Verdict counts one emitted verdict.
func (m *Metrics) Verdict(status string, overridden bool) {
	m.verdictsTotal.WithLabelValues(status).Inc()
	if overridden {
		m.overridesTotal.Inc()
	}
}

// ObserveBatch records the duration of one prediction batch in seconds.
func (m *Metrics) ObserveBatch(seconds float64) { m.scoreDuration.Observe(seconds) }

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the raw registry for tests.
func (m *Metrics) Gather() (value func(name string) float64, err error) {
	fams, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	return func(name string) float64 {
		var total float64
		for _, fam := range fams {
			if fam.GetName() != name {
				continue
			}
			for _, metric := range fam.GetMetric() {
				if c := metric.GetCounter(); c != nil {
					total += c.GetValue()
				}
			}
		}
		return total
	}, nil
}

// Package metrics exposes reconciliation counters and latencies to
// Prometheus. Each engine registers on its own registry so several engines
// (and tests) can coexist in one process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hazyhaar/domfix/domfix/mutation"
)

// Metrics provides observability for the engine.
type Metrics struct {
	Registry *prometheus.Registry

	// Passes by screen and trigger
	Passes *prometheus.CounterVec

	// Rule applications by outcome: applied, skipped, filtered
	Applications *prometheus.CounterVec

	// Rule failures by rule ID
	RuleFailures *prometheus.CounterVec

	// DOM writes produced by passes
	Mutations prometheus.Counter

	// Passes aborted (reentrancy, missing screen root)
	Aborted *prometheus.CounterVec

	// Pass reports dropped because the reporter queue was full
	ReportsDropped prometheus.Counter

	PassLatency *prometheus.HistogramVec
}

// New creates a Metrics instance registered on a fresh registry, with the
// Go runtime and process collectors included.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Passes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domfix_passes_total",
			Help: "Reconciliation passes by screen and trigger",
		}, []string{"screen", "trigger"}),

		Applications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domfix_rule_applications_total",
			Help: "Rule evaluations on matched elements by outcome",
		}, []string{"outcome"}),

		RuleFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domfix_rule_failures_total",
			Help: "Rule applications that returned an error or panicked",
		}, []string{"rule"}),

		Mutations: f.NewCounter(prometheus.CounterOpts{
			Name: "domfix_mutations_total",
			Help: "DOM writes produced by reconciliation passes",
		}),

		Aborted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domfix_passes_aborted_total",
			Help: "Passes that did not run, by reason",
		}, []string{"reason"}),

		ReportsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "domfix_reports_dropped_total",
			Help: "Pass reports dropped because the reporter queue was full",
		}),

		PassLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "domfix_pass_duration_seconds",
			Help:    "Duration of reconciliation passes",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"screen"}),
	}
}

// ObservePass records a finished or aborted pass.
func (m *Metrics) ObservePass(p *mutation.Pass) {
	if m == nil {
		return
	}
	if p.Aborted != "" {
		m.Aborted.WithLabelValues(p.Aborted).Inc()
		return
	}
	m.Passes.WithLabelValues(p.ScreenID, string(p.Trigger)).Inc()
	m.Applications.WithLabelValues("applied").Add(float64(p.Applied))
	m.Applications.WithLabelValues("skipped").Add(float64(p.Skipped))
	m.Applications.WithLabelValues("filtered").Add(float64(p.Filtered))
	for _, f := range p.Failures {
		m.RuleFailures.WithLabelValues(f.RuleID).Inc()
	}
	m.Mutations.Add(float64(p.Mutations()))
	m.PassLatency.WithLabelValues(p.ScreenID).Observe((time.Duration(p.Duration) * time.Microsecond).Seconds())
}

// IncrementDropped records a dropped report.
func (m *Metrics) IncrementDropped() {
	if m != nil {
		m.ReportsDropped.Inc()
	}
}

// Package metrics exposes the campaign workflow engine's Prometheus
// instrumentation: a private registry plus counters/gauges/histograms
// for tick execution and step outcomes. No HTTP /metrics exporter is
// wired here — serving the registry is an out-of-scope HTTP concern.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	global   *Metrics
	globalMu sync.RWMutex
)

// Metrics holds every Prometheus metric the engine records.
type Metrics struct {
	TicksTotal        *prometheus.CounterVec
	TickDurationSecs  *prometheus.HistogramVec
	TickSkippedTotal  *prometheus.CounterVec

	StepsExecutedTotal *prometheus.CounterVec
	StepsFailedTotal   *prometheus.CounterVec
	StepDurationSecs   *prometheus.HistogramVec

	LeadsAdmittedTotal    prometheus.Counter
	CooldownsAppliedTotal prometheus.Counter
	RateLimitDeferredTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers every metric against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		TicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaignflow_ticks_total",
				Help: "Total number of tick-driver task invocations",
			},
			[]string{"task"},
		),
		TickDurationSecs: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campaignflow_tick_duration_seconds",
				Help:    "Duration of a tick-driver task run",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
			[]string{"task"},
		),
		TickSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaignflow_ticks_skipped_total",
				Help: "Total number of tick-driver task runs that found no work to do",
			},
			[]string{"task"},
		),
		StepsExecutedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaignflow_steps_executed_total",
				Help: "Total number of workflow steps executed, by step type",
			},
			[]string{"step_type", "outcome"},
		),
		StepsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaignflow_steps_failed_total",
				Help: "Total number of workflow steps that failed, by step type",
			},
			[]string{"step_type"},
		),
		StepDurationSecs: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campaignflow_step_duration_seconds",
				Help:    "Duration of a single step execution",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10},
			},
			[]string{"step_type"},
		),
		LeadsAdmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "campaignflow_leads_admitted_total",
				Help: "Total number of leads admitted onto a workflow",
			},
		),
		CooldownsAppliedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "campaignflow_cooldowns_applied_total",
				Help: "Total number of sender-wide connection-request cooldowns applied",
			},
		),
		RateLimitDeferredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaignflow_ratelimit_deferred_total",
				Help: "Total number of steps deferred by the rate-limit gate",
			},
			[]string{"window"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TickDurationSecs,
		m.TickSkippedTotal,
		m.StepsExecutedTotal,
		m.StepsFailedTotal,
		m.StepDurationSecs,
		m.LeadsAdmittedTotal,
		m.CooldownsAppliedTotal,
		m.RateLimitDeferredTotal,
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// SetGlobal installs m as the process-wide metrics instance.
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = m
}

// Global returns the process-wide metrics instance, or nil if unset.
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()

	return global
}

// ObserveTick records a completed tick-driver task run.
func ObserveTick(task string, seconds float64) {
	m := Global()
	if m == nil {
		return
	}

	m.TicksTotal.WithLabelValues(task).Inc()
	m.TickDurationSecs.WithLabelValues(task).Observe(seconds)
}

// ObserveTickSkipped records a tick-driver task run that found no work
// to do. Runs skipped because the previous run is still in progress are
// not counted.
func ObserveTickSkipped(task string) {
	m := Global()
	if m == nil {
		return
	}

	m.TickSkippedTotal.WithLabelValues(task).Inc()
}

// ObserveStep records a completed step execution.
func ObserveStep(stepType, outcome string, seconds float64) {
	m := Global()
	if m == nil {
		return
	}

	m.StepsExecutedTotal.WithLabelValues(stepType, outcome).Inc()
	m.StepDurationSecs.WithLabelValues(stepType).Observe(seconds)

	if outcome == "failed" {
		m.StepsFailedTotal.WithLabelValues(stepType).Inc()
	}
}

// IncLeadsAdmitted increments the admitted-leads counter by n.
func IncLeadsAdmitted(n int) {
	m := Global()
	if m == nil {
		return
	}

	m.LeadsAdmittedTotal.Add(float64(n))
}

// IncCooldownApplied increments the sender-cooldown counter.
func IncCooldownApplied() {
	m := Global()
	if m == nil {
		return
	}

	m.CooldownsAppliedTotal.Inc()
}

// IncRateLimitDeferred increments the rate-limit-deferred counter for
// the given window ("daily" or "weekly").
func IncRateLimitDeferred(window string) {
	m := Global()
	if m == nil {
		return
	}

	m.RateLimitDeferredTotal.WithLabelValues(window).Inc()
}

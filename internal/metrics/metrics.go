// Package metrics exposes Prometheus collectors for workflow runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups the engine's Prometheus metrics. A nil *Collector is
// valid and records nothing.
type Collector struct {
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	stages        *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	memorySize    prometheus.Gauge
}

// NewCollector creates and registers the collectors on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "p2p_runs_total",
				Help: "Workflow runs by terminal status",
			},
			[]string{"status", "intent"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "p2p_run_duration_seconds",
				Help:    "Wall time of a workflow run",
				Buckets: prometheus.DefBuckets,
			},
		),
		stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "p2p_stage_executions_total",
				Help: "Stage invocations by outcome",
			},
			[]string{"stage", "outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "p2p_stage_duration_seconds",
				Help:    "Duration of stage invocations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "p2p_stage_retries_total",
				Help: "In-place retries scheduled after a stage failure",
			},
			[]string{"stage"},
		),
		memorySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "p2p_memory_entries",
				Help: "Entries currently held in classification memory",
			},
		),
	}
	reg.MustRegister(c.runs, c.runDuration, c.stages, c.stageDuration, c.retries, c.memorySize)
	return c
}

// ObserveRun records a finished run.
func (c *Collector) ObserveRun(status, intent string, d time.Duration) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(status, intent).Inc()
	c.runDuration.Observe(d.Seconds())
}

// ObserveStage records one stage invocation.
func (c *Collector) ObserveStage(stage string, ok bool, d time.Duration) {
	if c == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	c.stages.WithLabelValues(stage, outcome).Inc()
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRetry records a scheduled retry of stage.
func (c *Collector) ObserveRetry(stage string) {
	if c == nil {
		return
	}
	c.retries.WithLabelValues(stage).Inc()
}

// SetMemorySize updates the memory gauge.
func (c *Collector) SetMemorySize(n int) {
	if c == nil {
		return
	}
	c.memorySize.Set(float64(n))
}

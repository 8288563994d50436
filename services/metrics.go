package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// PipelineMetrics exposes the pipeline's cost and latency counters.
// All bounded-cost invariants (generation calls, repairs, store round-trips)
// are observable here.
type PipelineMetrics struct {
	registry *prometheus.Registry

	StageDuration   *prometheus.HistogramVec
	GenerationCalls *prometheus.CounterVec
	RepairAttempts  prometheus.Counter
	StoreErrors     prometheus.Counter
	Turns           *prometheus.CounterVec
	TurnFailures    *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers the pipeline metric set on a
// fresh registry, alongside Go runtime collectors.
func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &PipelineMetrics{
		registry: registry,
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "investigation_stage_duration_seconds",
			Help:    "Duration of each pipeline stage per turn",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		GenerationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investigation_generation_calls_total",
			Help: "Text-generation calls issued, by stage",
		}, []string{"stage"}),
		RepairAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "investigation_repair_attempts_total",
			Help: "Bounded query repair attempts",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "investigation_store_errors_total",
			Help: "Graph store execution failures, including repaired ones",
		}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investigation_turns_total",
			Help: "Completed conversation turns, by complexity label",
		}, []string{"complexity"}),
		TurnFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investigation_turn_failures_total",
			Help: "Turn-level failures, by originating stage",
		}, []string{"stage"}),
	}

	registry.MustRegister(
		m.StageDuration,
		m.GenerationCalls,
		m.RepairAttempts,
		m.StoreErrors,
		m.Turns,
		m.TurnFailures,
	)
	return m
}

// Registry returns the underlying registry for the /metrics handler.
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records one stage's duration.
func (m *PipelineMetrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// CountGeneration records one generation call for a stage.
func (m *PipelineMetrics) CountGeneration(stage string) {
	if m == nil {
		return
	}
	m.GenerationCalls.WithLabelValues(stage).Inc()
}

// CountRepair records one repair attempt.
func (m *PipelineMetrics) CountRepair() {
	if m == nil {
		return
	}
	m.RepairAttempts.Inc()
}

// CountStoreError records one store execution failure.
func (m *PipelineMetrics) CountStoreError() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

// CountTurn records one completed turn.
func (m *PipelineMetrics) CountTurn(complexity string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(complexity).Inc()
}

// CountTurnFailure records one failed turn attributed to a stage.
func (m *PipelineMetrics) CountTurnFailure(stage string) {
	if m == nil {
		return
	}
	m.TurnFailures.WithLabelValues(stage).Inc()
}

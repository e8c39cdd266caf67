// Package metrics holds the Prometheus instrumentation for the triage
// pipeline. Metrics are exposed by the schedule command's HTTP endpoint;
// one-shot runs still record them for the push-less default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds all Prometheus metrics for the triage pipeline.
type PipelineMetrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDurationSeconds prometheus.Histogram

	ItemsFetchedTotal   prometheus.Counter
	ItemsDedupedTotal   prometheus.Counter
	ItemsProcessedTotal *prometheus.CounterVec

	GenerationCallsTotal   *prometheus.CounterVec
	GenerationLatencyMs    prometheus.Histogram
	ClassificationFailures prometheus.Counter
	ConsolidationChunks    prometheus.Counter
	FailedChunksTotal      prometheus.Counter

	RepliesTotal *prometheus.CounterVec
}

// DefaultPipelineMetrics creates metrics on the default registry.
func DefaultPipelineMetrics() *PipelineMetrics {
	return NewPipelineMetrics(prometheus.DefaultRegisterer)
}

// NewPipelineMetrics creates a new set of pipeline metrics.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)

	return &PipelineMetrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_runs_total",
				Help: "Total pipeline runs by terminal status",
			},
			[]string{"status"},
		),
		RunDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "triage_run_duration_seconds",
				Help:    "Wall-clock duration of one pipeline run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		ItemsFetchedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "triage_items_fetched_total",
				Help: "Items returned by the mail fetch, before dedup",
			},
		),
		ItemsDedupedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "triage_items_deduped_total",
				Help: "Items dropped because they were already processed",
			},
		),
		ItemsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_items_processed_total",
				Help: "Items classified, by relevance outcome",
			},
			[]string{"relevant"},
		),
		GenerationCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_generation_calls_total",
				Help: "Generation service calls by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		GenerationLatencyMs: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "triage_generation_latency_ms",
				Help:    "Generation call latency in milliseconds",
				Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000},
			},
		),
		ClassificationFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "triage_classification_failures_total",
				Help: "Classifications that fell back to the safe default",
			},
		),
		ConsolidationChunks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "triage_consolidation_chunks_total",
				Help: "Consolidation chunks processed",
			},
		),
		FailedChunksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "triage_consolidation_failed_chunks_total",
				Help: "Consolidation chunks whose generation call failed",
			},
		),
		RepliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_replies_total",
				Help: "Reply dispatch outcomes",
			},
			[]string{"outcome"},
		),
	}
}

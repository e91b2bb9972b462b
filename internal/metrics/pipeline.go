package metrics

import "github.com/prometheus/client_golang/prometheus"

// Voice pipeline Prometheus metrics.
var (
	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each voice pipeline stage",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage", "mode"},
	)

	PipelineOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "outcomes_total",
			Help:      "Voice pipeline runs by outcome and the stage that decided it",
		},
		[]string{"mode", "outcome", "stage"},
	)

	PipelineSynthesisSegmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "synthesis_segments_total",
			Help:      "Synthesized segments by status",
		},
		[]string{"status"},
	)
)

// Device dispatch Prometheus metrics.
var (
	DispatchJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "jobs_total",
			Help:      "Device dispatch jobs by status (queued, dropped, done)",
		},
		[]string{"status"},
	)

	DispatchCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Commands delivered to devices by method and result",
		},
		[]string{"method", "result"},
	)

	DispatchQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Dispatch jobs waiting for a worker",
		},
	)
)

var voiceMetricsRegistered bool

// RegisterVoiceMetrics registers pipeline and dispatch metrics. Must be called once from main.
func RegisterVoiceMetrics() {
	if voiceMetricsRegistered {
		return
	}
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(PipelineOutcomesTotal)
	prometheus.MustRegister(PipelineSynthesisSegmentsTotal)
	prometheus.MustRegister(DispatchJobsTotal)
	prometheus.MustRegister(DispatchCommandsTotal)
	prometheus.MustRegister(DispatchQueueDepth)
	voiceMetricsRegistered = true
}

package workflow

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	activeRuns  prometheus.Gauge

	stepsTotal  *prometheus.CounterVec
	stepLatency *prometheus.HistogramVec
	queueDepth  prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "runs_total",
			Help:      "Total number of resolved workflow runs.",
		}, []string{"workflow", "result"}),
		runDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workflow",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration from submission to resolution.",
			Buckets: []float64{
				0.005, 0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5, 10, 30,
			},
		}, []string{"workflow", "result"}),
		activeRuns: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "workflow",
			Name:      "active_runs",
			Help:      "Current number of unresolved runs.",
		}),
		stepsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "steps_total",
			Help:      "Total number of step attempts.",
		}, []string{"step", "result"}),
		stepLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workflow",
			Name:      "step_latency_seconds",
			Help:      "Latency distribution for step attempts including persistence.",
			Buckets: []float64{
				0.0001, 0.0005,
				0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.5, 1,
			},
		}, []string{"step", "result"}),
		queueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "workflow",
			Name:      "queue_depth",
			Help:      "Current number of steps waiting for a worker.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

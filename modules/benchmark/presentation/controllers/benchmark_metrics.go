package controllers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/wfbench/modules/benchmark/domain/workload"
)

var (
	triggerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "benchmark",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Benchmark trigger requests by workflow and outcome (success or error).",
	}, []string{"workflow", "result"})

	// Buckets span a single fast step up to a fan-out stuck behind retries.
	triggerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "benchmark",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Wall time of benchmark trigger requests, submission through result.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"workflow", "result"})
)

// statusWriter remembers the status the trigger handler wrote.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// observeTrigger records one trigger request per workflow, labelled by whether it
// returned a result.
func observeTrigger(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)

		result := "success"
		if sw.status != http.StatusOK {
			result = "error"
		}
		name := workload.ParseKind(r.URL.Query().Get("type")).WorkflowName()
		triggerRequests.WithLabelValues(name, result).Inc()
		triggerLatency.WithLabelValues(name, result).Observe(time.Since(start).Seconds())
	}
}

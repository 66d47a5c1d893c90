package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrchestratorMetrics is the Prometheus-backed Recorder for the analysis
// pipeline: operation counts, durations, and error counts labeled by
// operation (e.g. "detect_objects_coarse", "scheduler_run_job",
// "gpu_pool_acquire") and status/error type.
type OrchestratorMetrics struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	errors     *prometheus.CounterVec
}

// NewOrchestratorMetrics registers the orchestrator's metric vectors against
// reg. Pass prometheus.NewRegistry() in tests to avoid global-registry
// collisions across packages.
func NewOrchestratorMetrics(reg prometheus.Registerer) *OrchestratorMetrics {
	m := &OrchestratorMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vab",
			Name:      "operations_total",
			Help:      "Count of orchestrator operations by status.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vab",
			Name:      "operation_duration_seconds",
			Help:      "Duration of orchestrator operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vab",
			Name:      "errors_total",
			Help:      "Count of orchestrator errors by type.",
		}, []string{"operation", "error_type"}),
	}
	reg.MustRegister(m.operations, m.durations, m.errors)
	return m
}

func (m *OrchestratorMetrics) RecordOperation(operation, status string) {
	m.operations.WithLabelValues(operation, status).Inc()
}

func (m *OrchestratorMetrics) RecordDuration(operation string, seconds float64) {
	m.durations.WithLabelValues(operation).Observe(seconds)
}

func (m *OrchestratorMetrics) RecordError(operation, errorType string) {
	m.errors.WithLabelValues(operation, errorType).Inc()
}

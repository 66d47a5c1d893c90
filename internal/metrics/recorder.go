// Package metrics defines the Recorder interface used across the
// orchestrator (scheduler, jobmanager) plus a Prometheus
// implementation and a TestRecorder double for unit tests.
package metrics

// Recorder is the uniform metrics contract every component records through,
// so business logic never touches the prometheus client directly.
type Recorder interface {
	RecordOperation(operation, status string)
	RecordDuration(operation string, seconds float64)
	RecordError(operation, errorType string)
}

// NoOpRecorder discards every call; used where metrics are wired but not
// configured (e.g. CLI one-shot commands).
type NoOpRecorder struct{}

// NewNoOpRecorder returns a Recorder that discards everything.
func NewNoOpRecorder() *NoOpRecorder { return &NoOpRecorder{} }

func (NoOpRecorder) RecordOperation(operation, status string)   {}
func (NoOpRecorder) RecordDuration(operation string, seconds float64) {}
func (NoOpRecorder) RecordError(operation, errorType string)    {}

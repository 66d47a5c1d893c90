package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	t.Parallel()

	recorder := NewTestRecorder()
	recorder.RecordOperation("detect_objects_coarse", "success")
	recorder.RecordOperation("detect_objects_coarse", "success")
	recorder.RecordOperation("detect_objects_coarse", "error")

	assert.Equal(t, 2, recorder.GetOperationCount("detect_objects_coarse", "success"))
	assert.Equal(t, 1, recorder.GetOperationCount("detect_objects_coarse", "error"))
}

func TestRecordDuration(t *testing.T) {
	t.Parallel()

	recorder := NewTestRecorder()
	recorder.RecordDuration("scheduler_run_shot", 0.123)
	recorder.RecordDuration("scheduler_run_shot", 0.456)

	durations := recorder.GetDurations("scheduler_run_shot")
	require.Len(t, durations, 2)
	assert.InDelta(t, 0.123, durations[0], 0.001)
}

func TestRecordError(t *testing.T) {
	t.Parallel()

	recorder := NewTestRecorder()
	recorder.RecordError("vl_reasoning", "vl_unreachable")
	assert.Equal(t, 1, recorder.GetErrorCount("vl_reasoning", "vl_unreachable"))
}

func TestRecorderThreadSafety(t *testing.T) {
	t.Parallel()

	recorder := NewTestRecorder()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				recorder.RecordOperation("concurrent", "success")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, recorder.GetOperationCount("concurrent", "success"))
}

func TestHasRecordedMetrics(t *testing.T) {
	t.Parallel()

	recorder := NewTestRecorder()
	assert.False(t, recorder.HasRecordedMetrics())
	recorder.RecordOperation("test", "success")
	assert.True(t, recorder.HasRecordedMetrics())
	recorder.Reset()
	assert.False(t, recorder.HasRecordedMetrics())
}

func TestNoOpRecorderDoesNotPanic(t *testing.T) {
	t.Parallel()
	recorder := NewNoOpRecorder()
	recorder.RecordOperation("test", "success")
	recorder.RecordDuration("test", 0.1)
	recorder.RecordError("test", "error")
}

func TestOrchestratorMetricsImplementsRecorder(t *testing.T) {
	t.Parallel()
	var _ Recorder = (*OrchestratorMetrics)(nil)

	reg := prometheus.NewRegistry()
	m := NewOrchestratorMetrics(reg)
	m.RecordOperation("detect_faces", "success")
	m.RecordDuration("detect_faces", 0.05)
	m.RecordError("detect_faces", "timeout")

	count, err := testutilGather(reg)
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}

func testutilGather(reg *prometheus.Registry) (int, error) {
	families, err := reg.Gather()
	if err != nil {
		return 0, err
	}
	return len(families), nil
}

package fallback

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func TestInvokeAdvancesLadderOnTransientFault(t *testing.T) {
	c := New(nil, 16)

	attempts := 0
	err := c.Invoke(func() error {
		attempts++
		if attempts == 1 {
			return detector.NewFault(vab.KindMaskRefinement, detector.FaultTransientResource, "oom", nil)
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 2, attempts, "should retry exactly once after advancing the ladder")
	require.True(t, c.MaskRefinementDisabled())
	require.Equal(t, 1, c.Snapshot().OOMTrips)
}

func TestInvokeDoesNotConsumeStepOnNonTransientFault(t *testing.T) {
	c := New(nil, 16)

	err := c.Invoke(func() error {
		return detector.NewFault(vab.KindFaces, detector.FaultInputDefect, "corrupt frame", nil)
	})

	require.Error(t, err)
	require.Equal(t, 0, c.Snapshot().Level)
}

func TestLadderIsMonotonicAcrossInvocations(t *testing.T) {
	c := New(nil, 16)

	transientFault := func() error {
		return detector.NewFault(vab.KindSuperRes, detector.FaultTransientResource, "oom", nil)
	}

	// first invocation: fails, advances to step 1, retries and fails again
	// (second transient in the same invoke is NOT re-retried) -> surfaced.
	err := c.Invoke(func() error {
		return transientFault()
	})
	require.Error(t, err)
	require.Equal(t, 1, c.Snapshot().Level)

	// a later, unrelated invocation on the same job observes the prior
	// ladder state and advances further when it also hits a transient fault.
	err = c.Invoke(func() error {
		return transientFault()
	})
	require.Error(t, err)
	require.GreaterOrEqual(t, c.Snapshot().Level, 2)
}

func TestShrinkVLContextHalvesWithFloor(t *testing.T) {
	c := New([]Step{StepShrinkVLContext, StepShrinkVLContext, StepShrinkVLContext}, 16)

	for range 3 {
		_ = c.Invoke(func() error {
			return detector.NewFault(vab.KindVLReasoning, detector.FaultTransientResource, "oom", nil)
		})
	}

	require.Equal(t, 4, c.QwenContextFrames(), "context size should floor at 4")
}

func TestInvokeSucceedsWithoutTouchingLadder(t *testing.T) {
	c := New(nil, 16)
	err := c.Invoke(func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, 0, c.Snapshot().Level)
}

func TestInvokePassesThroughPlainErrors(t *testing.T) {
	c := New(nil, 16)
	err := c.Invoke(func() error { return errors.New("boom") })
	require.Error(t, err)
	require.Equal(t, 0, c.Snapshot().Level)
}

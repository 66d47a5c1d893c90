// Package fallback implements the job-scoped, monotonic OOM-degradation
// ladder: each transient-resource fault advances exactly one step and
// triggers a single retry of the offending invocation (spec §4.3).
package fallback

import (
	"sync"

	"github.com/vabforge/vab-orchestrator/internal/detector"
)

// Step is one rung of the degradation ladder.
type Step string

const (
	StepDisableMaskRefinement Step = "disable_mask_refinement"
	StepDisableSuperRes       Step = "disable_superres"
	StepShrinkVLContext       Step = "shrink_vl_context"
	StepSingleScaleTiling     Step = "single_scale_tiling"
	StepSkipDetector          Step = "skip_detector"
)

// DefaultOrder is the ladder's default ordering (spec §4.3); configuration
// may override it via Runtime.OOMFallbackOrder.
var DefaultOrder = []Step{
	StepDisableMaskRefinement,
	StepDisableSuperRes,
	StepShrinkVLContext,
	StepSingleScaleTiling,
	StepSkipDetector,
}

// Reason maps each fired ladder step to the bundle status.reasons string
// the merge stage should emit.
func (s Step) Reason() string {
	switch s {
	case StepDisableMaskRefinement:
		return "mask_refinement_disabled"
	case StepDisableSuperRes:
		return "sr_disabled_by_fallback"
	case StepShrinkVLContext:
		return "vl_context_shrunk"
	case StepSingleScaleTiling:
		return "single_scale_tiling"
	case StepSkipDetector:
		return "resource_exhausted"
	default:
		return string(s)
	}
}

// Snapshot is a point-in-time read of ladder state for metrics/bundle
// assembly.
type Snapshot struct {
	Level              int
	FiredSteps         []Step
	MaskRefinementOff  bool
	SuperResOff        bool
	QwenContextFrames  int
	SingleScaleTiling  bool
	OOMTrips           int
}

// Controller is one job's fallback state machine: mutex-guarded, shared by
// every shot/detector invocation of that job, monotonically advancing.
type Controller struct {
	mu                sync.Mutex
	order             []Step
	level             int
	fired             []Step
	maskRefinementOff bool
	superResOff       bool
	qwenContextFrames int
	singleScaleTiling bool
	oomTrips          int
}

// New returns a Controller following order (ties to Runtime.OOMFallbackOrder),
// starting with qwenContextFrames as the unshrunk VL context size.
func New(order []Step, qwenContextFrames int) *Controller {
	if len(order) == 0 {
		order = DefaultOrder
	}
	if qwenContextFrames <= 0 {
		qwenContextFrames = 16
	}
	return &Controller{order: order, qwenContextFrames: qwenContextFrames}
}

// Invoke wraps one detector invocation attempt. On a *detector.Fault with
// Reason == FaultTransientResource, it advances the ladder to the next
// unfired step in the configured order and retries fn once. The choice of
// step does not depend on which detector failed; when every step has
// already fired, fn is not retried and the fault is returned. Any
// other error — including a second transient-resource fault — is returned
// as-is; non-transient faults never consume a ladder step.
func (c *Controller) Invoke(fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	fault, ok := asFault(err)
	if !ok || fault.Reason != detector.FaultTransientResource {
		return err
	}

	c.mu.Lock()
	c.oomTrips++
	advanced := c.advanceLocked()
	c.mu.Unlock()

	if !advanced {
		// Ladder exhausted; return the transient-resource fault unchanged,
		// which the caller records as a resource-exhausted skip.
		return err
	}

	return fn()
}

func asFault(err error) (*detector.Fault, bool) {
	f, ok := err.(*detector.Fault)
	return f, ok
}

// advanceLocked advances to the next unfired step, applying its effect.
// Returns false if every step has already fired.
func (c *Controller) advanceLocked() bool {
	if c.level >= len(c.order) {
		return false
	}
	step := c.order[c.level]
	c.level++
	c.fired = append(c.fired, step)

	switch step {
	case StepDisableMaskRefinement:
		c.maskRefinementOff = true
	case StepDisableSuperRes:
		c.superResOff = true
	case StepShrinkVLContext:
		c.qwenContextFrames = max(c.qwenContextFrames/2, 4)
	case StepSingleScaleTiling:
		c.singleScaleTiling = true
	case StepSkipDetector:
		// terminal step: caller's retry will itself be skipped by the
		// detector adapter observing ladder state, not by the controller.
	}
	return true
}

// Snapshot returns the current ladder state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	fired := make([]Step, len(c.fired))
	copy(fired, c.fired)
	return Snapshot{
		Level:             c.level,
		FiredSteps:        fired,
		MaskRefinementOff: c.maskRefinementOff,
		SuperResOff:       c.superResOff,
		QwenContextFrames: c.qwenContextFrames,
		SingleScaleTiling: c.singleScaleTiling,
		OOMTrips:          c.oomTrips,
	}
}

// MaskRefinementDisabled reports whether the ladder has disabled mask
// refinement for the remainder of the job.
func (c *Controller) MaskRefinementDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maskRefinementOff
}

// SuperResDisabled reports whether the ladder has disabled super-resolution
// (and its dependent fine-object pass) for the remainder of the job.
func (c *Controller) SuperResDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.superResOff
}

// SingleScaleTiling reports whether the ladder has reduced tiling to a
// single scale for the remainder of the job.
func (c *Controller) SingleScaleTiling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.singleScaleTiling
}

// QwenContextFrames returns the current (possibly shrunk) VL context size.
func (c *Controller) QwenContextFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.qwenContextFrames
}

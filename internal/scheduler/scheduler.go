// Package scheduler drives the per-shot DAG: Phase A's sequential GPU
// chain, Phase B's parallel CPU/GPU-light fan-out, and Phase C's VL
// reasoning step, under a bounded GPU pool and a job-scoped fallback ladder
// (spec §4.4).
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/detectoradapters"
	"github.com/vabforge/vab-orchestrator/internal/fallback"
	"github.com/vabforge/vab-orchestrator/internal/gpupool"
	"github.com/vabforge/vab-orchestrator/internal/logging"
	"github.com/vabforge/vab-orchestrator/internal/metrics"
	"github.com/vabforge/vab-orchestrator/internal/provenance"
	"github.com/vabforge/vab-orchestrator/internal/vab"
	"github.com/vabforge/vab-orchestrator/internal/vlclient"
)

// Deadlines configures the per-shot, per-class execution deadlines (spec §5).
type Deadlines struct {
	GPUHeavy time.Duration
	CPU      time.Duration
	VL       time.Duration
}

// phaseAOrder is the fixed, strictly-ordered Phase A chain (spec §4.4).
var phaseAOrder = []vab.DetectorKind{
	vab.KindObjectsCoarse,
	vab.KindObjectsTiled,
	vab.KindSuperRes,
	vab.KindObjectsFine,
	vab.KindMaskRefinement,
}

// phaseBKinds is the parallel fan-out set, excluding transition (handled
// separately since it needs the adjacent shot).
var phaseBKinds = []vab.DetectorKind{
	vab.KindFaces,
	vab.KindText,
	vab.KindColor,
	vab.KindMotion,
	vab.KindAudioEngineering,
}

// Scheduler owns process-scoped services passed in at construction time —
// no ambient globals (spec §9).
type Scheduler struct {
	Pool      *gpupool.Pool
	VLClient  *vlclient.Client
	Metrics   metrics.Recorder
	Deadlines Deadlines
	Logger    *slog.Logger
}

// New returns a Scheduler over the given process-scoped services.
func New(pool *gpupool.Pool, vlClient *vlclient.Client, rec metrics.Recorder, deadlines Deadlines) *Scheduler {
	logger := logging.ForComponent("scheduler")
	if rec == nil {
		rec = metrics.NewNoOpRecorder()
	}
	return &Scheduler{Pool: pool, VLClient: vlClient, Metrics: rec, Deadlines: deadlines, Logger: logger}
}

// RunResult is a job's scheduling output: per-shot results, the deduped
// provenance ledger, and the internal-error-shot count used by the
// failure-budget check at merge time.
type RunResult struct {
	ShotResults        []vab.ShotResult
	Provenance         *provenance.Ledger
	InternalErrorShots int
}

// RunJob executes the DAG for every shot in order, returning once every
// shot's chain (including Phase C) completes or ctx is canceled. Shots run
// concurrently; GPU-class detectors serialize through s.Pool regardless of
// which shot they belong to.
func (s *Scheduler) RunJob(ctx context.Context, job *vab.Job, shots []vab.Shot, ladder *fallback.Controller, baseCfg detector.Config) (*RunResult, error) {
	results := make([]vab.ShotResult, len(shots))
	ledger := provenance.NewLedger()
	var ledgerMu sync.Mutex
	var internalErrShots int32

	dt := newDeadlineTracker()

	eg, egCtx := errgroup.WithContext(ctx)
	for i := range shots {
		i := i
		eg.Go(func() error {
			shot := shots[i]
			var adjacent *vab.Shot
			if i+1 < len(shots) {
				adjacent = &shots[i+1]
			}

			result, hadInternalErr, err := s.runShot(egCtx, job, &shot, adjacent, ladder, baseCfg, dt, &ledgerMu, ledger)
			if err != nil {
				return err
			}
			results[i] = result
			if hadInternalErr {
				atomic.AddInt32(&internalErrShots, 1)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &RunResult{ShotResults: results, Provenance: ledger, InternalErrorShots: int(atomic.LoadInt32(&internalErrShots))}, nil
}

// runShot drives Phase A, B, and C for one shot.
func (s *Scheduler) runShot(ctx context.Context, job *vab.Job, shot *vab.Shot, adjacent *vab.Shot, ladder *fallback.Controller, baseCfg detector.Config, dt *deadlineTracker, ledgerMu *sync.Mutex, ledger *provenance.Ledger) (vab.ShotResult, bool, error) {
	result := vab.ShotResult{
		ShotID:     shot.ShotID,
		StartFrame: shot.StartFrame,
		EndFrame:   shot.EndFrame,
		FrameCount: shot.FrameCount,
		DurationS:  shot.DurationS,
	}

	hadInternalErr := false
	record := func(p vab.Provenance) {
		ledgerMu.Lock()
		ledger.Add(p)
		ledgerMu.Unlock()
	}

	cfg := baseCfg

	// Phase A: strictly sequential GPU chain.
	for _, kind := range phaseAOrder {
		snap := ladder.Snapshot()
		cfg.MaskRefinementDisabled = snap.MaskRefinementOff
		cfg.SuperResDisabledByLadder = snap.SuperResOff
		cfg.SingleScaleTiling = snap.SingleScaleTiling

		d, ok := detector.Lookup(kind)
		if !ok {
			continue
		}
		internalErr := s.invokeDetector(ctx, d, shot, cfg, &result, ladder, dt, s.Deadlines.GPUHeavy, record)
		hadInternalErr = hadInternalErr || internalErr
	}

	// Phase B: parallel fan-out. Individual failures leave their slot
	// empty but never abort the phase (spec §4.4). Each detector below
	// writes only its own named field of result.Detectors, so the calls
	// themselves run unsynchronized; only the shared hadInternalErr flag
	// needs a lock.
	var bWg sync.WaitGroup
	var bMu sync.Mutex
	for _, kind := range phaseBKinds {
		kind := kind
		bWg.Add(1)
		go func() {
			defer bWg.Done()
			d, ok := detector.Lookup(kind)
			if !ok {
				return
			}
			deadline := s.Deadlines.CPU
			if d.ResourceClass() == detector.ClassGPULight {
				deadline = s.Deadlines.GPUHeavy
			}
			internalErr := s.invokeDetector(ctx, d, shot, cfg, &result, ladder, dt, deadline, record)
			if internalErr {
				bMu.Lock()
				hadInternalErr = true
				bMu.Unlock()
			}
		}()
	}

	// Transition classification requires the adjacent shot; both shots'
	// prep data is already available (prep completes before scheduling
	// starts), so no additional rendezvous beyond the shared slice read is
	// needed.
	bWg.Add(1)
	go func() {
		defer bWg.Done()
		d, ok := detector.Lookup(vab.KindTransition)
		if !ok {
			return
		}
		tCfg := cfg
		tCfg.AdjacentShot = adjacent
		_ = s.invokeDetector(ctx, d, shot, tCfg, &result, ladder, dt, s.Deadlines.CPU, record)
	}()

	bWg.Wait()

	// Phase C: VL reasoning strictly follows A and B of this shot.
	if s.VLClient != nil {
		vlCfg := cfg
		vlCfg.QwenContextMaxFrames = ladder.QwenContextFrames()
		vl := detectoradapters.VLReasoning{Client: s.VLClient}
		vlCtx, cancel := context.WithTimeout(ctx, s.Deadlines.VL)
		res, err := vl.Detect(vlCtx, shot, vlCfg, &result)
		cancel()
		if err == nil {
			record(res.Provenance)
		}
	}

	return result, hadInternalErr, nil
}

// invokeDetector wraps one Phase A/B detector call: applies a per-class
// deadline, routes transient-resource faults through the ladder, records
// provenance (including skip stubs), and reports whether the invocation
// counted as an internal error for the job's failure budget.
func (s *Scheduler) invokeDetector(ctx context.Context, d detector.Detector, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult, ladder *fallback.Controller, dt *deadlineTracker, deadline time.Duration, record func(vab.Provenance)) bool {
	var provOut vab.Provenance
	var internalErr bool

	needsPermit := d.ResourceClass() == detector.ClassGPUHeavy || d.ResourceClass() == detector.ClassGPULight

	attempt := func() error {
		callCtx := ctx
		var cancel context.CancelFunc
		if deadline > 0 {
			callCtx, cancel = context.WithTimeout(ctx, deadline)
			defer cancel()
		}

		var permit *gpupool.Permit
		if needsPermit {
			var err error
			permit, err = s.Pool.Acquire(callCtx)
			if err != nil {
				return detector.NewFault(d.Kind(), detector.FaultTransientResource, "gpu pool acquire canceled", err)
			}
			defer permit.Release()
		}

		// Re-read the ladder immediately before each call: ladder.Invoke
		// below may have just advanced a step to fix the fault that's
		// about to be retried, and the retry must see that new state
		// rather than the stale cfg snapshot from before the first call.
		snap := ladder.Snapshot()
		cfg.MaskRefinementDisabled = snap.MaskRefinementOff
		cfg.SuperResDisabledByLadder = snap.SuperResOff
		cfg.SingleScaleTiling = snap.SingleScaleTiling

		res, err := runDetectorSafely(callCtx, d, shot, cfg, dst)
		if err != nil {
			if callCtx.Err() != nil {
				// deadline exceeded: transient on first violation for this
				// kind in the job, internal on repeat (spec §5).
				if dt.FirstViolation(d.Kind()) {
					return detector.NewFault(d.Kind(), detector.FaultTransientResource, "deadline exceeded", err)
				}
				return detector.NewFault(d.Kind(), detector.FaultInternal, "deadline exceeded (repeat)", err)
			}
			return err
		}
		provOut = res.Provenance
		return nil
	}

	err := ladder.Invoke(attempt)
	if err == nil {
		if provOut.Tool != "" {
			record(provOut)
		}
		return false
	}

	fault, ok := err.(*detector.Fault)
	if !ok {
		internalErr = true
		record(skippedProvenanceFor(string(d.Kind()), "internal_error"))
		s.Metrics.RecordError(string(d.Kind()), "internal")
		return internalErr
	}

	switch fault.Reason {
	case detector.FaultInputDefect:
		record(skippedProvenanceFor(string(d.Kind()), "input_defect"))
		s.Metrics.RecordError(string(d.Kind()), "input_defect")
	case detector.FaultTransientResource:
		record(skippedProvenanceFor(string(d.Kind()), "resource_exhausted"))
		s.Metrics.RecordError(string(d.Kind()), "transient_resource")
	default:
		internalErr = true
		record(skippedProvenanceFor(string(d.Kind()), "internal_error"))
		s.Metrics.RecordError(string(d.Kind()), "internal")
	}
	return internalErr
}

func skippedProvenanceFor(tool, reason string) vab.Provenance {
	return vab.Provenance{Tool: tool, Version: "1.0.0", SkippedReason: reason, Timestamp: time.Now()}
}

// runDetectorSafely recovers a panicking detector body into an internal
// Fault so one faulting adapter cannot crash the job's goroutine (spec §5:
// fault isolation).
func runDetectorSafely(ctx context.Context, d detector.Detector, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult) (res detector.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = detector.NewFault(d.Kind(), detector.FaultInternal, "detector panicked", nil)
		}
	}()
	return d.Detect(ctx, shot, cfg, dst)
}

// deadlineTracker records, per detector kind, whether a deadline has
// already fired once for this job — job-scoped, like the fallback ladder.
type deadlineTracker struct {
	mu   sync.Mutex
	seen map[vab.DetectorKind]bool
}

func newDeadlineTracker() *deadlineTracker {
	return &deadlineTracker{seen: make(map[vab.DetectorKind]bool)}
}

// FirstViolation returns true the first time it's called for kind, false
// thereafter.
func (d *deadlineTracker) FirstViolation(kind vab.DetectorKind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[kind] {
		return false
	}
	d.seen[kind] = true
	return true
}

// Package jobmanager owns the async job lifecycle: it accepts submissions,
// enforces idempotence, drives prep → scheduling → merge → coverage →
// bundle persistence for each job on its own goroutine, and replays
// non-terminal jobs from the durable store on startup (spec §4.7).
package jobmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vabforge/vab-orchestrator/internal/calibration"
	"github.com/vabforge/vab-orchestrator/internal/coverage"
	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/fallback"
	"github.com/vabforge/vab-orchestrator/internal/jobstore"
	"github.com/vabforge/vab-orchestrator/internal/logging"
	"github.com/vabforge/vab-orchestrator/internal/merge"
	"github.com/vabforge/vab-orchestrator/internal/metrics"
	"github.com/vabforge/vab-orchestrator/internal/prep"
	"github.com/vabforge/vab-orchestrator/internal/scheduler"
	"github.com/vabforge/vab-orchestrator/internal/vab"
	"github.com/vabforge/vab-orchestrator/internal/verrors"
)

// Config carries the tunables the manager needs to build each job's
// accumulator/gate/merge policy, mirroring conf.Settings' Detection,
// Coverage, Merge, and FailureBudget sections.
type Config struct {
	TileSize, TileStride, SmallObjectMinPx, FrameStride int
	SRUpscaleScale                                      int
	Coverage                                            coverage.Thresholds
	Merge                                                merge.Config
	MaxInternalErrorShotPct                              float64
	LadderOrder                                          []fallback.Step
	QwenContextMaxFrames                                 int
	StoreDir                                             string
}

// Manager is the process-scoped job orchestrator. It holds no per-job state
// beyond what's in flight via runningJobs; everything durable lives in
// Store.
type Manager struct {
	Store     jobstore.Store
	Segmenter prep.Segmenter
	Scheduler *scheduler.Scheduler
	Config    Config
	Metrics   metrics.Recorder
	log       *slog.Logger

	mu         sync.Mutex
	runningJobs map[string]context.CancelFunc
}

// New returns a Manager over the given process-scoped collaborators.
func New(store jobstore.Store, segmenter prep.Segmenter, sched *scheduler.Scheduler, cfg Config, rec metrics.Recorder) *Manager {
	if rec == nil {
		rec = metrics.NewNoOpRecorder()
	}
	return &Manager{
		Store:       store,
		Segmenter:   segmenter,
		Scheduler:   sched,
		Config:      cfg,
		Metrics:     rec,
		log:         logging.ForComponent("jobmanager"),
		runningJobs: make(map[string]context.CancelFunc),
	}
}

// SubmitOutcome tells the caller (the HTTP boundary) which of the
// idempotence rules (spec §4.7) applied.
type SubmitOutcome struct {
	Job      vab.Job
	Started  bool // true when a run starts: first acceptance or restart of a failed job
	Conflict bool // true if video_id is in a non-idempotent conflicting state
}

// Submit enforces idempotence and, if accepted, starts the job on its own
// goroutine: an existing terminal job returns its result unchanged; an
// existing running job returns the running job without starting a second
// run; an existing failed job may restart; otherwise a new job is created.
// A resubmission naming a different media_url or different ablations than
// the job already on file for video_id is a non-idempotent conflict (spec
// §6: "409 conflict if video_id in non-idempotent conflicting state") — the
// caller must pick a new video_id rather than silently reusing this one
// with different inputs.
func (m *Manager) Submit(ctx context.Context, videoID, mediaURL, sourcePath string, ablations vab.Ablations) (SubmitOutcome, error) {
	existing, err := m.Store.Get(ctx, videoID)
	switch {
	case err == nil:
		switch existing.State {
		case vab.JobCompleted:
			if conflictingResubmission(existing, mediaURL, ablations) {
				return SubmitOutcome{Job: existing, Conflict: true}, nil
			}
			return SubmitOutcome{Job: existing}, nil
		case vab.JobRunning, vab.JobQueued:
			if conflictingResubmission(existing, mediaURL, ablations) {
				return SubmitOutcome{Job: existing, Conflict: true}, nil
			}
			return SubmitOutcome{Job: existing}, nil
		case vab.JobFailed:
			// restart: fall through to re-run with the same row.
			now := time.Now()
			existing.State = vab.JobQueued
			existing.Progress = 0
			existing.Message = ""
			existing.FinishedAt = nil
			existing.CreatedAt = now
			if uerr := m.Store.UpdateState(ctx, videoID, vab.JobQueued, "restarted"); uerr != nil {
				return SubmitOutcome{}, uerr
			}
			m.start(videoID, mediaURL, sourcePath, ablations)
			return SubmitOutcome{Job: existing, Started: true}, nil
		}
		return SubmitOutcome{Job: existing}, nil

	case err == jobstore.ErrNotFound:
		job := &vab.Job{
			VideoID:    videoID,
			MediaURL:   mediaURL,
			SourcePath: sourcePath,
			Ablations:  ablations,
			State:      vab.JobQueued,
			CreatedAt:  time.Now(),
		}
		if cerr := m.Store.Create(ctx, job); cerr != nil {
			return SubmitOutcome{}, cerr
		}
		m.start(videoID, mediaURL, sourcePath, ablations)
		return SubmitOutcome{Job: *job, Started: true}, nil

	default:
		return SubmitOutcome{}, err
	}
}

// Status returns the current row for videoID.
func (m *Manager) Status(ctx context.Context, videoID string) (vab.Job, error) {
	return m.Store.Get(ctx, videoID)
}

// Result returns the persisted bundle for a completed job.
func (m *Manager) Result(ctx context.Context, videoID string) (*vab.Bundle, error) {
	job, err := m.Store.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if job.State != vab.JobCompleted && job.State != vab.JobFailed {
		return nil, verrors.Newf("jobmanager: result requested for non-terminal job %s", videoID).
			Category(verrors.CategoryNotFound).
			Component("jobmanager").
			Build()
	}
	path, perr := m.Store.BundlePath(ctx, videoID)
	if perr != nil {
		return nil, perr
	}
	if path == "" {
		return nil, verrors.Newf("jobmanager: job %s has no persisted bundle", videoID).
			Category(verrors.CategoryNotFound).
			Component("jobmanager").
			Build()
	}
	return jobstore.LoadBundle(path)
}

// Start replays every non-terminal job from the store back into the run
// loop, re-arming the scheduler after a process restart (spec §4.7).
func (m *Manager) Start(ctx context.Context) error {
	jobs, err := m.Store.ReplayNonTerminal(ctx)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if uerr := m.Store.UpdateState(ctx, j.VideoID, vab.JobQueued, "replayed after restart"); uerr != nil {
			m.log.Warn("failed to reset replayed job to queued", "video_id", j.VideoID, "error", uerr)
			continue
		}
		m.log.Info("replaying non-terminal job", "video_id", j.VideoID, "previous_state", j.State)
		m.start(j.VideoID, j.MediaURL, j.SourcePath, j.Ablations)
	}
	return nil
}

func (m *Manager) start(videoID, mediaURL, sourcePath string, ablations vab.Ablations) {
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.runningJobs[videoID] = cancel
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.runningJobs, videoID)
			m.mu.Unlock()
			cancel()
		}()
		m.run(ctx, videoID, mediaURL, sourcePath, ablations)
	}()
}

// run drives one job end to end. It never returns an error to the caller —
// all failures are recorded onto the job row itself, matching the teacher's
// background-worker pattern of surfacing failure through state, not a
// channel/error return (spec §4.7: the job's own state is the error
// channel).
func (m *Manager) run(ctx context.Context, videoID, mediaURL, sourcePath string, ablations vab.Ablations) {
	start := time.Now()
	log := m.log.With("video_id", videoID)

	if err := m.Store.UpdateState(ctx, videoID, vab.JobRunning, "segmenting"); err != nil {
		log.Error("failed to mark job running", "error", err)
		return
	}
	m.Metrics.RecordOperation("job_run", "started")

	prepResult, err := m.Segmenter.Segment(ctx, videoID, sourcePath, m.Config.StoreDir)
	if err != nil {
		log.Error("prep failed", "error", err)
		_ = m.Store.UpdateState(ctx, videoID, vab.JobFailed, fmt.Sprintf("prep failed: %v", err))
		m.Metrics.RecordOperation("job_run", "failed_prep")
		return
	}
	if sha, serr := prep.SHA256File(sourcePath); serr == nil {
		prepResult.SHA256 = sha
	}

	_ = m.Store.UpdateProgress(ctx, videoID, 10, "scheduling detectors")

	baseCfg := detector.Config{
		TileSize:             m.Config.TileSize,
		TileStride:            m.Config.TileStride,
		SuperResEnabled:       !ablations.NoSR,
		SmallObjectMinPx:      m.Config.SmallObjectMinPx,
		STOIEnabled:           true,
		QwenContextMaxFrames:  m.Config.QwenContextMaxFrames,
		Ablations:             ablations,
	}

	ladder := fallback.New(m.Config.LadderOrder, m.Config.QwenContextMaxFrames)

	runResult, err := m.Scheduler.RunJob(ctx, &vab.Job{VideoID: videoID, Ablations: ablations}, prepResult.Shots, ladder, baseCfg)
	if err != nil {
		log.Error("scheduling failed", "error", err)
		_ = m.Store.UpdateState(ctx, videoID, vab.JobFailed, fmt.Sprintf("scheduling failed: %v", err))
		m.Metrics.RecordOperation("job_run", "failed_schedule")
		return
	}

	if snap, merr := json.Marshal(ladder.Snapshot()); merr == nil {
		_ = m.Store.SaveLadderState(ctx, videoID, string(snap))
	}

	_ = m.Store.UpdateProgress(ctx, videoID, 70, "merging")

	scenes := merge.GroupScenes(prepResult.Shots, sceneSimilarity(runResult.ShotResults), transitionKindOf(runResult.ShotResults), m.Config.Merge)
	global := merge.GlobalStats(runResult.ShotResults, prepResult.TotalFrames, prepResult.DurationS, prepResult.FPS, prepResult.Resolution)

	snap := ladder.Snapshot()
	risks := merge.SynthesizeRisks(runResult.ShotResults, snap.Level > 2)

	acc := coverage.New(m.Config.TileSize, m.Config.TileStride, m.Config.SmallObjectMinPx, m.Config.FrameStride,
		prepResult.Resolution.W, prepResult.Resolution.H)
	if snap.SuperResOff {
		acc.RecordSuperResLadderDisabled(m.Config.SRUpscaleScale)
	}
	for _, s := range runResult.ShotResults {
		acc.RecordFrames(s.FrameCount, s.FrameCount)
		if s.Detectors.Audio != nil {
			window := s.DurationS
			speechS := 0.0
			if s.Detectors.Audio.HasSpeech {
				speechS = window
			}
			// The clarity-traced duration is recorded equal to the speech
			// duration for every shot with speech, including LightAudio
			// jobs, where the audio detector does not compute STOI.
			acc.RecordAudio(window, window, speechS, speechS)
		}
		acc.RecordSuperRes(s.Detectors.SRUsed)
	}
	cov := acc.Coverage()
	gateOK, gateReasons := coverage.Gate(cov, m.Config.Coverage)

	failurePct := 0.0
	if len(runResult.ShotResults) > 0 {
		failurePct = float64(runResult.InternalErrorShots) / float64(len(runResult.ShotResults))
	}
	budgetExceeded := failurePct > m.Config.MaxInternalErrorShotPct

	var reasons []string
	reasons = append(reasons, gateReasons...)
	for _, step := range snap.FiredSteps {
		reasons = append(reasons, step.Reason())
	}
	if budgetExceeded {
		reasons = append(reasons, "internal_error_budget_exceeded")
	}
	reasons = dedupe(reasons)

	state := "ok"
	if !gateOK || snap.Level > 0 || budgetExceeded {
		state = "degraded"
	}

	global.Detections["shots"] = len(runResult.ShotResults)

	calTable, calErr := calibration.Table()
	if calErr != nil {
		log.Error("failed to load calibration table", "error", calErr)
	}

	bundle := &vab.Bundle{
		SchemaVersion: vab.SchemaVersion,
		Status: vab.Status{
			State:    state,
			Reasons:  reasons,
			Coverage: cov,
		},
		Video: vab.VideoMeta{
			VideoID: videoID,
			Path:    sourcePath,
			SHA256:  prepResult.SHA256,
			Metrics: vab.VideoMetrics{
				LatencyMsByStage: map[string]int64{"total": time.Since(start).Milliseconds()},
				OOMTrips:         snap.OOMTrips,
			},
		},
		Global:      global,
		Scenes:      scenes,
		Shots:       runResult.ShotResults,
		Risks:       risks,
		Provenance:  runResult.Provenance.Entries(),
		Calibration: calTable,
	}

	path, serr := jobstore.SaveBundle(m.Config.StoreDir, videoID, bundle)
	if serr != nil {
		log.Error("failed to persist bundle", "error", serr)
		_ = m.Store.UpdateState(ctx, videoID, vab.JobFailed, fmt.Sprintf("bundle persist failed: %v", serr))
		m.Metrics.RecordOperation("job_run", "failed_persist")
		return
	}
	_ = m.Store.SaveBundlePath(ctx, videoID, path)
	_ = m.Store.UpdateState(ctx, videoID, vab.JobCompleted, "completed")
	m.Metrics.RecordDuration("job_run", time.Since(start).Seconds())
	m.Metrics.RecordOperation("job_run", "completed")
	log.Info("job completed", "status", state, "duration_s", time.Since(start).Seconds())
}

// sceneSimilarity derives a [0,1] similarity score between two adjacent
// shots from their color/motion features, feeding merge.GroupScenes's
// caller-supplied similarity function (spec §4.5: similarity is computed
// upstream of the grouping policy itself).
func sceneSimilarity(results []vab.ShotResult) func(a, b vab.Shot) float64 {
	byID := make(map[string]vab.ShotResult, len(results))
	for _, r := range results {
		byID[r.ShotID] = r
	}
	return func(a, b vab.Shot) float64 {
		ra, oka := byID[a.ShotID]
		rb, okb := byID[b.ShotID]
		if !oka || !okb || ra.Detectors.Color == nil || rb.Detectors.Color == nil {
			return 0
		}
		colorDist := absF(ra.Detectors.Color.Brightness-rb.Detectors.Color.Brightness) +
			absF(ra.Detectors.Color.Contrast-rb.Detectors.Color.Contrast)
		motionDist := 0.0
		if ra.Detectors.Motion != nil && rb.Detectors.Motion != nil {
			motionDist = absF(ra.Detectors.Motion.AvgFlowMagnitude - rb.Detectors.Motion.AvgFlowMagnitude)
		}
		dist := (colorDist + motionDist) / 3
		sim := 1 - dist
		if sim < 0 {
			sim = 0
		}
		if sim > 1 {
			sim = 1
		}
		return sim
	}
}

func transitionKindOf(results []vab.ShotResult) func(shotID string) string {
	byID := make(map[string]vab.ShotResult, len(results))
	for _, r := range results {
		byID[r.ShotID] = r
	}
	return func(shotID string) string {
		r, ok := byID[shotID]
		if !ok || r.Detectors.Transition == nil {
			return ""
		}
		return r.Detectors.Transition.Kind
	}
}

// conflictingResubmission reports whether a resubmission's media_url or
// ablations differ from the job already on file for this video_id. An
// empty incoming mediaURL (e.g. the /ingest + /analyze flow, where the
// video is already on disk) never conflicts on URL; ablations are compared
// directly since their zero value is itself a meaningful "no ablations"
// request.
func conflictingResubmission(existing vab.Job, mediaURL string, ablations vab.Ablations) bool {
	if mediaURL != "" && existing.MediaURL != "" && mediaURL != existing.MediaURL {
		return true
	}
	return ablations != existing.Ablations
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

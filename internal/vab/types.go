// Package vab defines the Video Analysis Bundle data model: jobs, shots,
// scenes, detector results, coverage, risks, and the final bundle document.
// Cross-references between these types are by id, never by pointer, so the
// model stays acyclic and trivially JSON-serializable.
package vab

import "time"

// JobState is the lifecycle state of a video analysis job.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Ablations disables specific capabilities for a job, independent of the
// fallback ladder.
type Ablations struct {
	NoSR       bool `json:"no_sr,omitempty"`
	NoTiling   bool `json:"no_tiling,omitempty"`
	LightAudio bool `json:"light_audio,omitempty"`
}

// Job is the top-level unit of work tracked by the job manager.
type Job struct {
	VideoID    string     `json:"video_id"`
	MediaURL   string     `json:"media_url,omitempty"`
	SourcePath string     `json:"source_path,omitempty"`
	Ablations  Ablations  `json:"ablations"`
	State      JobState   `json:"state"`
	Progress   int        `json:"progress"`
	Message    string     `json:"message,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// AudioWindow is the time range of audio associated with a shot.
type AudioWindow struct {
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
}

// Shot is a contiguous range of frames between detected boundaries, derived
// once during prep and immutable afterward.
type Shot struct {
	ShotID      string      `json:"shot_id"`
	Index       int         `json:"index"`
	StartFrame  int         `json:"start_frame"`
	EndFrame    int         `json:"end_frame"`
	FrameCount  int         `json:"frame_count"`
	DurationS   float64     `json:"duration_s"`
	FramePaths  []string    `json:"frame_paths"`
	AudioWindow AudioWindow `json:"audio_window"`
}

// SceneFeatures holds aggregate per-scene signal used by narrative synthesis.
type SceneFeatures struct {
	DominantColors []string `json:"dominant_colors,omitempty"`
	AvgMotion      float64  `json:"avg_motion"`
}

// Scene groups visually/temporally coherent shots, derived at merge time.
type Scene struct {
	SceneID    string        `json:"scene_id"`
	ShotIDs    []string      `json:"shots"`
	StartFrame int           `json:"start_frame"`
	EndFrame   int           `json:"end_frame"`
	Features   SceneFeatures `json:"features"`
}

// DetectorKind enumerates the closed set of detector variants.
type DetectorKind string

const (
	KindObjectsCoarse    DetectorKind = "objects_coarse"
	KindObjectsTiled     DetectorKind = "objects_tiled"
	KindSuperRes         DetectorKind = "superres"
	KindObjectsFine      DetectorKind = "objects_fine"
	KindMaskRefinement   DetectorKind = "mask_refinement"
	KindFaces            DetectorKind = "faces"
	KindText             DetectorKind = "text"
	KindColor            DetectorKind = "color"
	KindMotion           DetectorKind = "motion"
	KindAudioEngineering DetectorKind = "audio"
	KindTransition       DetectorKind = "transition"
	KindVLReasoning      DetectorKind = "vl_reasoning"
)

// Provenance identifies the tool/version/params/checkpoint behind one
// detector invocation.
type Provenance struct {
	Tool           string    `json:"tool"`
	Version        string    `json:"version"`
	ModelCkptID    string    `json:"ckpt,omitempty"`
	ParamsFingerpr string    `json:"params_hash"`
	Timestamp      time.Time `json:"ts"`
	SkippedReason  string    `json:"skipped_reason,omitempty"`
}

// BBox is a normalized or pixel bounding box, detector-defined.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ObjectDetection is one detected object instance.
type ObjectDetection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Box        BBox    `json:"box"`
	Pass       string  `json:"pass"`
}

// FaceDetection is one detected face instance.
type FaceDetection struct {
	Box        BBox    `json:"box"`
	Confidence float64 `json:"confidence"`
}

// TextRegion is one detected text/typography region.
type TextRegion struct {
	Box  BBox   `json:"box"`
	Text string `json:"text,omitempty"`
}

// ColorFeatures is the color & composition detector's payload.
type ColorFeatures struct {
	DominantColors []string `json:"dominant_colors"`
	Brightness     float64  `json:"brightness"`
	Contrast       float64  `json:"contrast"`
}

// MotionFeatures is the motion & saliency detector's payload.
type MotionFeatures struct {
	AvgFlowMagnitude float64 `json:"avg_flow_magnitude"`
	SaliencyPeakX    float64 `json:"saliency_peak_x"`
	SaliencyPeakY    float64 `json:"saliency_peak_y"`
}

// AudioFeatures is the audio-engineering detector's payload.
type AudioFeatures struct {
	LoudnessLUFS  float64 `json:"loudness_lufs"`
	TruePeakDBTP  float64 `json:"true_peak_dbtp"`
	DynamicRangeD float64 `json:"dynamic_range_db"`
	STOI          float64 `json:"stoi"`
	HasSpeech     bool    `json:"has_speech"`
	StereoPhase   float64 `json:"stereo_phase_corr"`
}

// TransitionResult classifies the cut between two adjacent shots.
type TransitionResult struct {
	Kind          string `json:"kind"` // cut, dissolve, fade, wipe, none
	SkippedReason string `json:"skipped_reason,omitempty"`
}

// ReasoningResult is the VL reasoner's structured output for one shot.
type ReasoningResult struct {
	Summary           string   `json:"summary"`
	Mood              string   `json:"mood"`
	Intent            string   `json:"intent"`
	CompositionNotes  []string `json:"composition_notes"`
	TransitionGuess   string   `json:"transition_guess"`
	SkippedReason     string   `json:"skipped_reason,omitempty"`
}

// ShotDetectors collects every detector's output for one shot, one
// dedicated field per detector kind.
type ShotDetectors struct {
	Objects    []ObjectDetection `json:"objects,omitempty"`
	Faces      []FaceDetection   `json:"faces,omitempty"`
	Text       []TextRegion      `json:"text,omitempty"`
	Color      *ColorFeatures    `json:"color,omitempty"`
	Motion     *MotionFeatures   `json:"motion,omitempty"`
	Audio      *AudioFeatures    `json:"audio,omitempty"`
	Transition *TransitionResult `json:"transition,omitempty"`
	SRUsed     bool              `json:"sr_used"`
}

// ShotResult is the merged per-shot view persisted in the bundle: detector
// outputs plus the VL reasoning fields and the provenance entries that
// produced them.
type ShotResult struct {
	ShotID           string            `json:"shot_id"`
	StartFrame       int               `json:"start_frame"`
	EndFrame         int               `json:"end_frame"`
	FrameCount       int               `json:"frame_count"`
	DurationS        float64           `json:"duration_s"`
	Detectors        ShotDetectors     `json:"detectors"`
	Summary          string            `json:"summary,omitempty"`
	Mood             string            `json:"mood,omitempty"`
	Intent           string            `json:"intent,omitempty"`
	CompositionNotes []string          `json:"composition_notes,omitempty"`
	TransitionGuess  string            `json:"transition_guess,omitempty"`
	Provenance       map[string]string `json:"-"` // kind -> provenance key, internal bookkeeping
}

// SpatialCoverage reports how much of each analyzed frame's area was
// actually covered by object-detection passes.
type SpatialCoverage struct {
	TileSize         int     `json:"tile_size"`
	Stride           int     `json:"stride"`
	SRUsed           bool    `json:"sr_used"`
	PixelsCoveredPct float64 `json:"pixels_covered_pct"`
	MinDetectablePx  int     `json:"min_detectable_px"`
}

// TemporalCoverage reports what fraction of frames were analyzed.
type TemporalCoverage struct {
	FrameStride       int     `json:"frame_stride"`
	FramesAnalyzedPct float64 `json:"frames_analyzed_pct"`
}

// AudioCoverage reports the fraction of audio with valid loudness/clarity
// measurements.
type AudioCoverage struct {
	LUFSTracePct float64 `json:"lufs_trace_pct"`
	STOIPct      float64 `json:"stoi_pct"`
}

// Coverage is the monotonic-within-a-job accumulator feeding the quality gate.
type Coverage struct {
	Spatial  SpatialCoverage  `json:"spatial"`
	Temporal TemporalCoverage `json:"temporal"`
	Audio    AudioCoverage    `json:"audio"`
}

// RiskType enumerates recognized risk categories.
type RiskType string

const (
	RiskLowDialogueIntelligibility RiskType = "low_dialogue_intelligibility"
	RiskAudioClipping              RiskType = "audio_clipping"
	RiskCaptionFaceOverlap         RiskType = "caption_face_overlap"
	RiskDegradedDetection          RiskType = "degraded_detection"
)

// Severity is the risk severity band.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "med"
	SeverityHigh   Severity = "high"
)

// Risk is one derived risk flag attached to a shot.
type Risk struct {
	ShotID   string         `json:"shot_id"`
	Type     RiskType       `json:"type"`
	Severity Severity       `json:"severity"`
	Metric   map[string]any `json:"metric"`
}

// Status is the final quality-gate verdict for a bundle.
type Status struct {
	State    string   `json:"state"` // ok | degraded | failed
	Reasons  []string `json:"reasons"`
	Coverage Coverage `json:"coverage"`
}

// VideoMetrics captures per-stage timing and resource-pressure counters.
type VideoMetrics struct {
	LatencyMsByStage map[string]int64 `json:"latency_ms"`
	GPUMemMBPeak     int64            `json:"gpu_mem_mb_peak"`
	Retries          int              `json:"retries"`
	OOMTrips         int              `json:"oom_trips"`
}

// VideoMeta is the bundle's top-level video identity block.
type VideoMeta struct {
	VideoID string       `json:"video_id"`
	Path    string       `json:"path"`
	SHA256  string       `json:"sha256"`
	Metrics VideoMetrics `json:"metrics"`
}

// Resolution is frame width/height.
type Resolution struct {
	W int `json:"w"`
	H int `json:"h"`
}

// GlobalStats is whole-video aggregate statistics.
type GlobalStats struct {
	TotalFrames int            `json:"total_frames"`
	DurationS   float64        `json:"duration_s"`
	FPS         float64        `json:"fps"`
	Resolution  Resolution     `json:"resolution"`
	Detections  map[string]int `json:"detections"`
}

// Calibration is a static per-detector-family expected accuracy entry,
// loaded once per job from the internal/calibration table.
type Calibration struct {
	Family       string  `json:"family"`
	ExpectedTPR  float64 `json:"expected_tpr"`
	ExpectedFPR  float64 `json:"expected_fpr"`
}

// Bundle is the complete Video Analysis Bundle persisted as vab.json.
type Bundle struct {
	SchemaVersion string        `json:"schema_version"`
	Status        Status        `json:"status"`
	Video         VideoMeta     `json:"video"`
	Global        GlobalStats   `json:"global"`
	Scenes        []Scene       `json:"scenes"`
	Shots         []ShotResult  `json:"shots"`
	Risks         []Risk        `json:"risks"`
	Provenance    []Provenance  `json:"provenance"`
	Calibration   []Calibration `json:"calibration"`
}

// SchemaVersion is the current bundle schema version; bump and add a
// migration note on any breaking shape change (spec §9).
const SchemaVersion = "1.1.0"

// Package detector defines the uniform contract every detector adapter
// implements, the closed set of fault reasons they may report, and the
// static registry the scheduler consults — a closed, statically-registered
// variant set rather than reflection-driven dynamic dispatch (spec §9).
package detector

import (
	"context"
	"fmt"

	"github.com/vabforge/vab-orchestrator/internal/vab"
)

// ResourceClass determines GPU-pool admission for a detector kind.
type ResourceClass string

const (
	ClassGPUHeavy ResourceClass = "gpu_heavy"
	ClassGPULight ResourceClass = "gpu_light"
	ClassCPU      ResourceClass = "cpu"
	ClassIO       ResourceClass = "io"
)

// FaultReason is the closed set of ways a detector invocation can fail.
type FaultReason string

const (
	FaultTransientResource FaultReason = "transient_resource"
	FaultInputDefect       FaultReason = "input_defect"
	FaultInternal          FaultReason = "internal"
	FaultExternal          FaultReason = "external"
)

// Fault is the sum-type error every detector returns on failure instead of
// an opaque error value, so the scheduler and fallback controller can
// branch on Reason without string sniffing.
type Fault struct {
	Reason  FaultReason
	Kind    vab.DetectorKind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s (%s): %v", f.Kind, f.Reason, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s (%s)", f.Kind, f.Reason, f.Message)
}

func (f *Fault) Unwrap() error { return f.Cause }

// NewFault constructs a Fault. message should describe the specific failure
// site, not repeat the reason.
func NewFault(kind vab.DetectorKind, reason FaultReason, message string, cause error) *Fault {
	return &Fault{Reason: reason, Kind: kind, Message: message, Cause: cause}
}

// Config is the subset of runtime settings a detector needs at invocation
// time. Adapters read only the fields relevant to their kind.
type Config struct {
	TileSize             int
	TileStride           int
	SuperResEnabled      bool
	SRTriggerMinH        int
	UpscaleScale         int
	SmallObjectMinPx     int
	TargetLUFS           float64
	STOIEnabled          bool
	STOIMinOK            float64
	QwenContextMaxFrames int
	Ablations            vab.Ablations
	AdjacentShot         *vab.Shot // set only for transition detection
	ModelCache           ModelCache

	// Ladder state, snapshotted by the scheduler before each invocation so
	// adapters stay pure functions of (shot, cfg) with no controller
	// dependency of their own.
	MaskRefinementDisabled bool
	SuperResDisabledByLadder bool
	SingleScaleTiling        bool
}

// ModelCache is a process-wide, read-mostly cache of lazily-loaded model
// handles, shared across shots and jobs within one process (spec §5: model
// weights are read-mostly and cached process-wide).
type ModelCache interface {
	Get(key string, load func() (any, error)) (any, error)
}

// Result is one detector invocation's output: the payload (detector-kind
// specific, carried via vab.ShotDetectors / vab.ReasoningResult by the
// caller) plus its provenance.
type Result struct {
	Provenance vab.Provenance
	Skipped    bool
}

// Detector is the uniform contract every detector adapter implements.
type Detector interface {
	// Kind identifies which variant this is.
	Kind() vab.DetectorKind
	// ResourceClass determines pool admission.
	ResourceClass() ResourceClass
	// Detect runs the detector against one shot, writing its payload into
	// dst (the shot's accumulating ShotDetectors/reasoning struct) and
	// returning provenance, or a *Fault on failure.
	Detect(ctx context.Context, shot *vab.Shot, cfg Config, dst *vab.ShotResult) (Result, error)
}

// registry is the static, init-time-populated set of available detectors,
// keyed by kind. No runtime reflection; adding a detector means declaring a
// new variant and calling Register in its package's init().
var registry = make(map[vab.DetectorKind]Detector)

// Register adds a detector to the static registry. Intended to be called
// from detector-adapter package init() functions only.
func Register(d Detector) {
	registry[d.Kind()] = d
}

// Lookup returns the registered detector for kind, or false if none is
// registered (a configuration error — every enabled kind must resolve).
func Lookup(kind vab.DetectorKind) (Detector, bool) {
	d, ok := registry[kind]
	return d, ok
}

// All returns every registered detector, for diagnostics and coverage
// accounting of "enabled detector kinds".
func All() []Detector {
	out := make([]Detector, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	return out
}

package detectoradapters

import (
	"context"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func init() {
	detector.Register(SuperRes{})
}

// SuperRes conditionally upscales frames whose height is below the
// configured trigger before the fine object pass runs. When it does not
// upscale, the result is marked skipped, and the provenance reason tells
// disabled (by ablation, by config or by the fallback ladder) apart from
// not triggered.
type SuperRes struct{}

func (SuperRes) Kind() vab.DetectorKind                { return vab.KindSuperRes }
func (SuperRes) ResourceClass() detector.ResourceClass { return detector.ClassGPUHeavy }

func (SuperRes) Detect(ctx context.Context, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult) (detector.Result, error) {
	if err := ctx.Err(); err != nil {
		return detector.Result{}, detector.NewFault(vab.KindSuperRes, detector.FaultInternal, "context canceled", err)
	}

	disabled := cfg.Ablations.NoSR || !cfg.SuperResEnabled || cfg.SuperResDisabledByLadder
	if disabled {
		reason := "sr_disabled_by_ablation"
		if !cfg.Ablations.NoSR {
			reason = "sr_disabled"
			if cfg.SuperResDisabledByLadder {
				reason = "sr_disabled_by_fallback"
			}
		}
		dst.Detectors.SRUsed = false
		return detector.Result{Skipped: true, Provenance: skippedProvenance("superres", reason)}, nil
	}

	triggered := false
	if len(shot.FramePaths) > 0 {
		// Real frames carry decoded height metadata upstream; this stand-in
		// has none, so it triggers on any shot shorter than 3 frames and also
		// whenever SRTriggerMinH is 360 or more (which includes the default).
		triggered = shot.FrameCount < 3 || cfg.SRTriggerMinH >= 360
	}

	dst.Detectors.SRUsed = triggered
	if !triggered {
		return detector.Result{Skipped: true, Provenance: skippedProvenance("superres", "not_triggered")}, nil
	}

	prov := newProvenance("superres", "sr-v1", map[string]any{
		"trigger_min_h": cfg.SRTriggerMinH,
		"scale":         cfg.UpscaleScale,
	})
	return detector.Result{Provenance: prov}, nil
}

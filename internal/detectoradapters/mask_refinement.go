package detectoradapters

import (
	"context"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func init() {
	detector.Register(MaskRefinement{})
}

// MaskRefinement is the last stage of Phase A: refines segmentation masks
// for surviving detections. It is the fallback ladder's first rung, so it
// must honor cfg.MaskRefinementDisabled.
type MaskRefinement struct{}

func (MaskRefinement) Kind() vab.DetectorKind                { return vab.KindMaskRefinement }
func (MaskRefinement) ResourceClass() detector.ResourceClass { return detector.ClassGPUHeavy }

func (MaskRefinement) Detect(ctx context.Context, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult) (detector.Result, error) {
	if err := ctx.Err(); err != nil {
		return detector.Result{}, detector.NewFault(vab.KindMaskRefinement, detector.FaultInternal, "context canceled", err)
	}

	if cfg.MaskRefinementDisabled {
		return detector.Result{Skipped: true, Provenance: skippedProvenance("mask-refinement", "resource_exhausted")}, nil
	}

	if len(dst.Detectors.Objects) == 0 {
		return detector.Result{Skipped: true, Provenance: skippedProvenance("mask-refinement", "no_surviving_detections")}, nil
	}

	prov := newProvenance("mask-refinement", "mask-v1", map[string]any{"objects": len(dst.Detectors.Objects)})
	return detector.Result{Provenance: prov}, nil
}

package detectoradapters

import (
	"context"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func init() {
	detector.Register(ObjectsFine{})
}

// ObjectsFine re-runs object detection only on upscaled regions that
// survived coarse+tiled NMS; it is skipped whenever super-resolution did
// not run for this shot (disabled, not triggered, or ladder-demoted).
type ObjectsFine struct{}

func (ObjectsFine) Kind() vab.DetectorKind                { return vab.KindObjectsFine }
func (ObjectsFine) ResourceClass() detector.ResourceClass { return detector.ClassGPUHeavy }

func (ObjectsFine) Detect(ctx context.Context, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult) (detector.Result, error) {
	if err := ctx.Err(); err != nil {
		return detector.Result{}, detector.NewFault(vab.KindObjectsFine, detector.FaultInternal, "context canceled", err)
	}

	if !dst.Detectors.SRUsed {
		return detector.Result{Skipped: true, Provenance: skippedProvenance("objects-fine", "no_superres_output")}, nil
	}

	det := syntheticObject(shot.ShotID, "fine", 0)
	dst.Detectors.Objects = mergeObjects(dst.Detectors.Objects, []vab.ObjectDetection{det})

	prov := newProvenance("objects-fine", "fine-v1", map[string]any{"pass": "fine"})
	return detector.Result{Provenance: prov}, nil
}

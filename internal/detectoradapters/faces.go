package detectoradapters

import (
	"context"
	"hash/fnv"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func init() {
	detector.Register(Faces{})
}

// Faces is a Phase B gpu_light detector, independent of Phase A's chain.
type Faces struct{}

func (Faces) Kind() vab.DetectorKind                { return vab.KindFaces }
func (Faces) ResourceClass() detector.ResourceClass { return detector.ClassGPULight }

func (Faces) Detect(ctx context.Context, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult) (detector.Result, error) {
	if err := ctx.Err(); err != nil {
		return detector.Result{}, detector.NewFault(vab.KindFaces, detector.FaultInternal, "context canceled", err)
	}
	if len(shot.FramePaths) == 0 {
		return detector.Result{}, detector.NewFault(vab.KindFaces, detector.FaultInputDefect, "no decoded frames for shot", nil)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(shot.ShotID + "faces"))
	seed := h.Sum32()
	if seed%3 == 0 {
		dst.Detectors.Faces = append(dst.Detectors.Faces, vab.FaceDetection{
			Box:        vab.BBox{X: 0.3, Y: 0.2, W: 0.15, H: 0.2},
			Confidence: 0.6 + float64(seed%30)/100.0,
		})
	}

	prov := newProvenance("faces", "faces-v1", map[string]any{"shot_id": shot.ShotID})
	return detector.Result{Provenance: prov}, nil
}

package detectoradapters

import (
	"context"
	"hash/fnv"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func init() {
	detector.Register(Text{})
}

// Text detects caption/typography regions; used alongside Faces to derive
// the caption_face_overlap risk at merge time.
type Text struct{}

func (Text) Kind() vab.DetectorKind                { return vab.KindText }
func (Text) ResourceClass() detector.ResourceClass { return detector.ClassGPULight }

func (Text) Detect(ctx context.Context, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult) (detector.Result, error) {
	if err := ctx.Err(); err != nil {
		return detector.Result{}, detector.NewFault(vab.KindText, detector.FaultInternal, "context canceled", err)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(shot.ShotID + "text"))
	seed := h.Sum32()
	if seed%4 == 0 {
		dst.Detectors.Text = append(dst.Detectors.Text, vab.TextRegion{
			Box:  vab.BBox{X: 0.25, Y: 0.15, W: 0.3, H: 0.1},
			Text: "caption",
		})
	}

	prov := newProvenance("text", "text-v1", map[string]any{"shot_id": shot.ShotID})
	return detector.Result{Provenance: prov}, nil
}

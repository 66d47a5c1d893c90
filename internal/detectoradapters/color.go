package detectoradapters

import (
	"context"
	"hash/fnv"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func init() {
	detector.Register(Color{})
}

// Color is a cpu-class Phase B detector reporting composition features.
type Color struct{}

func (Color) Kind() vab.DetectorKind                { return vab.KindColor }
func (Color) ResourceClass() detector.ResourceClass { return detector.ClassCPU }

func (Color) Detect(ctx context.Context, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult) (detector.Result, error) {
	if err := ctx.Err(); err != nil {
		return detector.Result{}, detector.NewFault(vab.KindColor, detector.FaultInternal, "context canceled", err)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(shot.ShotID + "color"))
	seed := h.Sum32()
	palette := [][]string{
		{"#1a1a1a", "#c0392b"},
		{"#2c3e50", "#ecf0f1"},
		{"#27ae60", "#f1c40f"},
	}

	dst.Detectors.Color = &vab.ColorFeatures{
		DominantColors: palette[int(seed)%len(palette)],
		Brightness:     float64(seed%100) / 100.0,
		Contrast:       float64((seed/100)%100) / 100.0,
	}

	prov := newProvenance("color", "color-v1", map[string]any{"shot_id": shot.ShotID})
	return detector.Result{Provenance: prov}, nil
}

package detectoradapters

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func init() {
	detector.Register(ObjectsCoarse{})
}

// ObjectsCoarse is the first stage of Phase A: a single full-frame object
// pass. Real deployments point this at a YOLO-family checkpoint (out of
// scope per spec §1); this adapter derives deterministic detections from
// shot identity so the scheduler's NMS/merge/coverage logic is exercised
// without a model dependency.
type ObjectsCoarse struct{}

func (ObjectsCoarse) Kind() vab.DetectorKind           { return vab.KindObjectsCoarse }
func (ObjectsCoarse) ResourceClass() detector.ResourceClass { return detector.ClassGPUHeavy }

func (ObjectsCoarse) Detect(ctx context.Context, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult) (detector.Result, error) {
	if err := ctx.Err(); err != nil {
		return detector.Result{}, detector.NewFault(vab.KindObjectsCoarse, detector.FaultInternal, "context canceled", err)
	}
	if len(shot.FramePaths) == 0 {
		return detector.Result{}, detector.NewFault(vab.KindObjectsCoarse, detector.FaultInputDefect, "no decoded frames for shot", nil)
	}

	det := syntheticObject(shot.ShotID, "coarse", 0)
	dst.Detectors.Objects = mergeObjects(dst.Detectors.Objects, []vab.ObjectDetection{det})

	prov := newProvenance("objects-coarse", "coarse-v1", map[string]any{
		"pass": "coarse",
	})
	return detector.Result{Provenance: prov}, nil
}

// syntheticObject derives a stable, shot-identity-seeded detection so tests
// are reproducible without a real model.
func syntheticObject(shotID, pass string, index int) vab.ObjectDetection {
	h := fnv.New32a()
	key := shotID + pass
	if index > 0 {
		key += strconv.Itoa(index)
	}
	_, _ = h.Write([]byte(key))
	seed := h.Sum32()
	classes := []string{"person", "vehicle", "animal", "object"}
	class := classes[int(seed)%len(classes)]
	conf := 0.5 + float64(seed%50)/100.0
	return vab.ObjectDetection{
		Class:      class,
		Confidence: conf,
		Box:        vab.BBox{X: float64(seed%100) / 100.0, Y: float64((seed / 100) % 100) / 100.0, W: 0.2, H: 0.2},
		Pass:       pass,
	}
}

// mergeObjects appends newDets to existing, applying IoU-based NMS with
// ties broken by highest confidence, then by earliest pass (spec §4.4).
func mergeObjects(existing []vab.ObjectDetection, newDets []vab.ObjectDetection) []vab.ObjectDetection {
	for _, cand := range newDets {
		keep := true
		for i, e := range existing {
			if iou(e.Box, cand.Box) < 0.5 {
				continue
			}
			if cand.Confidence > e.Confidence {
				existing[i] = cand
			}
			keep = false
			break
		}
		if keep {
			existing = append(existing, cand)
		}
	}
	return existing
}

func iou(a, b vab.BBox) float64 {
	ax1, ay1, ax2, ay2 := a.X, a.Y, a.X+a.W, a.Y+a.H
	bx1, by1, bx2, by2 := b.X, b.Y, b.X+b.W, b.Y+b.H

	ix1, iy1 := max2(ax1, bx1), max2(ay1, by1)
	ix2, iy2 := min2(ax2, bx2), min2(ay2, by2)
	iw, ih := max2(0, ix2-ix1), max2(0, iy2-iy1)
	inter := iw * ih
	if inter <= 0 {
		return 0
	}
	union := a.W*a.H + b.W*b.H - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

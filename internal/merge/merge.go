// Package merge groups shots into scenes, computes global stats, and
// derives risk flags at the end of per-shot execution (spec §4.5).
package merge

import (
	"fmt"

	"github.com/vabforge/vab-orchestrator/internal/vab"
)

// Config holds merge-stage thresholds.
type Config struct {
	SceneSSIMThreshold float64
	MaxSceneGapS       float64
}

// GroupScenes merges consecutive shots into scenes. A transition classified
// as "cut" breaks a scene unconditionally (spec §4.5, §9 open question:
// "compute always, a cut result breaks scenes unconditionally"); otherwise
// shots merge when their visual similarity exceeds SceneSSIMThreshold and
// their time gap is within MaxSceneGapS. similarity is supplied by the
// caller per shot-pair (derived from color/motion feature distance
// upstream); this package only applies the grouping policy.
func GroupScenes(shots []vab.Shot, similarity func(a, b vab.Shot) float64, transitionKind func(shotID string) string, cfg Config) []vab.Scene {
	if len(shots) == 0 {
		return nil
	}

	var scenes []vab.Scene
	current := vab.Scene{
		SceneID:    "scene-0",
		ShotIDs:    []string{shots[0].ShotID},
		StartFrame: shots[0].StartFrame,
		EndFrame:   shots[0].EndFrame,
	}

	for i := 1; i < len(shots); i++ {
		prev, next := shots[i-1], shots[i]
		gap := next.AudioWindow.StartS - prev.AudioWindow.EndS

		isCut := transitionKind(prev.ShotID) == "cut"
		sameScene := !isCut &&
			similarity(prev, next) >= cfg.SceneSSIMThreshold &&
			gap <= cfg.MaxSceneGapS

		if sameScene {
			current.ShotIDs = append(current.ShotIDs, next.ShotID)
			current.EndFrame = next.EndFrame
			continue
		}

		scenes = append(scenes, current)
		current = vab.Scene{
			SceneID:    sceneID(len(scenes)),
			ShotIDs:    []string{next.ShotID},
			StartFrame: next.StartFrame,
			EndFrame:   next.EndFrame,
		}
	}
	scenes = append(scenes, current)
	return scenes
}

func sceneID(index int) string {
	return fmt.Sprintf("scene-%d", index)
}

// GlobalStats aggregates whole-video statistics from per-shot results.
func GlobalStats(shots []vab.ShotResult, totalFrames int, durationS, fps float64, resolution vab.Resolution) vab.GlobalStats {
	detections := make(map[string]int)
	for _, s := range shots {
		detections["objects"] += len(s.Detectors.Objects)
		detections["faces"] += len(s.Detectors.Faces)
		detections["text"] += len(s.Detectors.Text)
	}
	return vab.GlobalStats{
		TotalFrames: totalFrames,
		DurationS:   durationS,
		FPS:         fps,
		Resolution:  resolution,
		Detections:  detections,
	}
}

// SynthesizeRisks derives risk flags from per-shot detector metrics and
// ladder state (spec §4.5).
func SynthesizeRisks(shots []vab.ShotResult, ladderLevelAboveStep2 bool) []vab.Risk {
	var risks []vab.Risk

	for _, s := range shots {
		if a := s.Detectors.Audio; a != nil {
			if a.HasSpeech && a.STOI > 0 && a.STOI < 0.8 {
				risks = append(risks, vab.Risk{
					ShotID:   s.ShotID,
					Type:     vab.RiskLowDialogueIntelligibility,
					Severity: vab.SeverityMedium,
					Metric:   map[string]any{"stoi": a.STOI},
				})
			}
			if a.TruePeakDBTP > -1.0 {
				risks = append(risks, vab.Risk{
					ShotID:   s.ShotID,
					Type:     vab.RiskAudioClipping,
					Severity: vab.SeverityHigh,
					Metric:   map[string]any{"true_peak_dbtp": a.TruePeakDBTP},
				})
			}
		}

		if captionFaceOverlap(s) {
			risks = append(risks, vab.Risk{
				ShotID:   s.ShotID,
				Type:     vab.RiskCaptionFaceOverlap,
				Severity: vab.SeverityLow,
				Metric:   map[string]any{"faces": len(s.Detectors.Faces), "text_regions": len(s.Detectors.Text)},
			})
		}
	}

	if ladderLevelAboveStep2 {
		// one risk flag per job, not per shot: attach to the first shot as
		// a job-wide marker, matching spec §4.5's "any ladder step above 2".
		if len(shots) > 0 {
			risks = append(risks, vab.Risk{
				ShotID:   shots[0].ShotID,
				Type:     vab.RiskDegradedDetection,
				Severity: vab.SeverityMedium,
				Metric:   map[string]any{},
			})
		}
	}

	return risks
}

func captionFaceOverlap(s vab.ShotResult) bool {
	for _, face := range s.Detectors.Faces {
		for _, text := range s.Detectors.Text {
			if boxesOverlap(face.Box, text.Box) {
				return true
			}
		}
	}
	return false
}

func boxesOverlap(a, b vab.BBox) bool {
	return a.X < b.X+b.W && a.X+a.W > b.X && a.Y < b.Y+b.H && a.Y+a.H > b.Y
}

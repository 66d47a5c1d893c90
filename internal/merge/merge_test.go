package merge

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func TestGroupScenesMergesSimilarAdjacentShots(t *testing.T) {
	shots := []vab.Shot{
		{ShotID: "s0", StartFrame: 0, EndFrame: 10, AudioWindow: vab.AudioWindow{StartS: 0, EndS: 1}},
		{ShotID: "s1", StartFrame: 10, EndFrame: 20, AudioWindow: vab.AudioWindow{StartS: 1, EndS: 2}},
	}

	scenes := GroupScenes(shots,
		func(a, b vab.Shot) float64 { return 0.9 },
		func(shotID string) string { return "dissolve" },
		Config{SceneSSIMThreshold: 0.45, MaxSceneGapS: 2.0})

	require.Len(t, scenes, 1)
	require.Equal(t, []string{"s0", "s1"}, scenes[0].ShotIDs)
}

func TestCutAlwaysBreaksScene(t *testing.T) {
	shots := []vab.Shot{
		{ShotID: "s0", StartFrame: 0, EndFrame: 10},
		{ShotID: "s1", StartFrame: 10, EndFrame: 20},
	}

	scenes := GroupScenes(shots,
		func(a, b vab.Shot) float64 { return 0.99 }, // would merge if not for the cut
		func(shotID string) string { return "cut" },
		Config{SceneSSIMThreshold: 0.45, MaxSceneGapS: 2.0})

	require.Len(t, scenes, 2)
}

func TestSingleShotYieldsSingleScene(t *testing.T) {
	shots := []vab.Shot{{ShotID: "s0", StartFrame: 0, EndFrame: 10}}
	scenes := GroupScenes(shots, nil, func(string) string { return "" }, Config{SceneSSIMThreshold: 0.45, MaxSceneGapS: 2.0})
	require.Len(t, scenes, 1)
	require.Equal(t, []string{"s0"}, scenes[0].ShotIDs)
}

func TestSynthesizeRisksDetectsAudioClippingAndLowIntelligibility(t *testing.T) {
	shots := []vab.ShotResult{
		{
			ShotID: "s0",
			Detectors: vab.ShotDetectors{
				Audio: &vab.AudioFeatures{HasSpeech: true, STOI: 0.5, TruePeakDBTP: -0.5},
			},
		},
	}

	risks := SynthesizeRisks(shots, false)
	var types []vab.RiskType
	for _, r := range risks {
		types = append(types, r.Type)
	}
	require.Contains(t, types, vab.RiskLowDialogueIntelligibility)
	require.Contains(t, types, vab.RiskAudioClipping)
}

func TestSynthesizeRisksDetectsCaptionFaceOverlap(t *testing.T) {
	shots := []vab.ShotResult{
		{
			ShotID: "s0",
			Detectors: vab.ShotDetectors{
				Faces: []vab.FaceDetection{{Box: vab.BBox{X: 0.2, Y: 0.2, W: 0.2, H: 0.2}}},
				Text:  []vab.TextRegion{{Box: vab.BBox{X: 0.25, Y: 0.25, W: 0.1, H: 0.1}}},
			},
		},
	}

	risks := SynthesizeRisks(shots, false)
	require.Len(t, risks, 1)
	require.Equal(t, vab.RiskCaptionFaceOverlap, risks[0].Type)
}

func TestSynthesizeRisksFlagsDegradedDetectionWhenLadderAdvancedPastStepTwo(t *testing.T) {
	shots := []vab.ShotResult{{ShotID: "s0"}}
	risks := SynthesizeRisks(shots, true)
	require.Len(t, risks, 1)
	require.Equal(t, vab.RiskDegradedDetection, risks[0].Type)
}

package coverage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultTileStrideYieldsFullSpatialCoverage(t *testing.T) {
	a := New(512, 256, 8, 1, 1920, 1080)
	a.RecordFrames(100, 100)
	cov := a.Coverage()
	require.Equal(t, 100.0, cov.Spatial.PixelsCoveredPct)
}

func TestFrameStrideOneYieldsFullTemporalCoverage(t *testing.T) {
	a := New(512, 256, 8, 1, 1920, 1080)
	a.RecordFrames(300, 300)
	cov := a.Coverage()
	require.Equal(t, 100.0, cov.Temporal.FramesAnalyzedPct)
}

func TestSilentVideoReportsFullSTOICoverageByConvention(t *testing.T) {
	a := New(512, 256, 8, 1, 1920, 1080)
	a.RecordAudio(10, 10, 0, 0)
	cov := a.Coverage()
	require.Equal(t, 100.0, cov.Audio.STOIPct)
}

func TestPartialTemporalCoverageFailsGate(t *testing.T) {
	a := New(512, 256, 8, 1, 1920, 1080)
	a.RecordFrames(100, 50)
	a.RecordAudio(10, 10, 5, 5)
	cov := a.Coverage()

	ok, reasons := Gate(cov, Thresholds{FramesAnalyzedPct: 99, LUFSTracePct: 100, STOIPct: 90})
	require.False(t, ok)
	require.Contains(t, reasons, "temporal_coverage_below_threshold")
}

func TestTinyVideoDegeneratesToOneTile(t *testing.T) {
	// Frame smaller than the tile size on both axes: one tile spans it
	// entirely regardless of stride (spec §8).
	a := New(512, 512, 8, 1, 256, 256)
	a.RecordFrames(1, 1)
	cov := a.Coverage()
	require.Equal(t, 100.0, cov.Spatial.PixelsCoveredPct)
}

func TestStrideGreaterThanTileSizeLeavesGaps(t *testing.T) {
	// stride (1024) > tileSize (512) over a 2048x2048 frame: tiles sit at
	// x=0 and x=1024 on each axis, each covering 512px, leaving real gaps —
	// the union-of-tiles fraction must actually reflect that, not 100%.
	a := New(512, 1024, 8, 1, 2048, 2048)
	a.RecordFrames(1, 1)
	cov := a.Coverage()
	require.Equal(t, 25.0, cov.Spatial.PixelsCoveredPct)
}

func TestMinDetectablePxDegradesWhenLadderDisablesSuperRes(t *testing.T) {
	a := New(512, 256, 8, 1, 1920, 1080)
	a.RecordSuperResLadderDisabled(4)
	cov := a.Coverage()
	require.Equal(t, 32, cov.Spatial.MinDetectablePx)
}

func TestGateFailsWhenMinDetectablePxExceedsThreshold(t *testing.T) {
	a := New(512, 256, 8, 1, 1920, 1080)
	a.RecordFrames(10, 10)
	a.RecordAudio(10, 10, 0, 0)
	a.RecordSuperResLadderDisabled(4)
	cov := a.Coverage()

	ok, reasons := Gate(cov, Thresholds{FramesAnalyzedPct: 99, LUFSTracePct: 100, STOIPct: 90, MinDetectablePx: 8})
	require.False(t, ok)
	require.Contains(t, reasons, "min_detectable_px_above_threshold")
}

func TestStrideLessThanTileSizeStillYieldsFullCoverage(t *testing.T) {
	a := New(512, 256, 8, 1, 1920, 1080)
	a.RecordFrames(1, 1)
	cov := a.Coverage()
	require.Equal(t, 100.0, cov.Spatial.PixelsCoveredPct)
}

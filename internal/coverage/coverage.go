// Package coverage accumulates spatial/temporal/audio coverage across a
// job's shots and evaluates the quality gate that decides bundle status
// (spec §4.6).
package coverage

import "github.com/vabforge/vab-orchestrator/internal/vab"

// Thresholds holds the configured minimums for the quality gate.
type Thresholds struct {
	FramesAnalyzedPct float64
	LUFSTracePct      float64
	STOIPct           float64
	MinDetectablePx   int
}

// Accumulator is monotonic within a job: Record* calls only add, never
// subtract, coverage already earned. The one exception is
// RecordSuperResLadderDisabled, which raises (worsens) MinDetectablePx.
type Accumulator struct {
	tileSize, stride       int
	frameWidth, frameHeight int
	srUsed                 bool
	minDetectablePx        int
	srLadderDisabled       bool
	upscaleScale           int

	totalFrames    int
	analyzedFrames int
	frameStride    int

	totalAudioS       float64
	loudnessTracedS   float64
	speechS           float64
	speechClarityS    float64
}

// New returns an accumulator seeded with the job's tiling configuration and
// the analyzed frames' resolution, so spatial coverage reflects the actual
// union-of-tiles fraction for that frame size rather than an assumed one
// (spec §4.6, §8 testable properties).
func New(tileSize, stride, minDetectablePx, frameStride, frameWidth, frameHeight int) *Accumulator {
	return &Accumulator{
		tileSize: tileSize, stride: stride, minDetectablePx: minDetectablePx, frameStride: frameStride,
		frameWidth: frameWidth, frameHeight: frameHeight,
	}
}

// RecordFrames adds frameCount total frames and analyzedCount of them
// actually analyzed (detector-executed, not skipped by ablation/fallback).
func (a *Accumulator) RecordFrames(frameCount, analyzedCount int) {
	a.totalFrames += frameCount
	a.analyzedFrames += analyzedCount
}

// RecordSuperRes marks whether super-resolution actually ran for any shot.
func (a *Accumulator) RecordSuperRes(used bool) {
	if used {
		a.srUsed = true
	}
}

// RecordSuperResLadderDisabled marks that the fallback ladder disabled
// super-resolution for the remainder of the job. Without SR's fixed upscale
// (spec §4.4 step 3), the smallest object the pipeline can still resolve
// degrades by that same factor, so the reported min-detectable-px gets
// worse — a fallback-skip, unlike an ablation, is allowed to reduce
// coverage (spec §8).
func (a *Accumulator) RecordSuperResLadderDisabled(upscaleScale int) {
	a.srLadderDisabled = true
	if upscaleScale > 1 {
		a.upscaleScale = upscaleScale
	}
}

// RecordAudio adds durationS total audio, tracedS with a valid loudness
// sample, speechS classified as speech, and clarityS of that speech with a
// computed STOI score.
func (a *Accumulator) RecordAudio(durationS, tracedS, speechS, clarityS float64) {
	a.totalAudioS += durationS
	a.loudnessTracedS += tracedS
	a.speechS += speechS
	a.speechClarityS += clarityS
}

// Coverage computes the final vab.Coverage snapshot.
func (a *Accumulator) Coverage() vab.Coverage {
	spatialPct := unionOfTilesPct(a.tileSize, a.stride, a.frameWidth, a.frameHeight)

	minDetectablePx := a.minDetectablePx
	if a.srLadderDisabled && a.upscaleScale > 1 {
		minDetectablePx *= a.upscaleScale
	}

	temporalPct := 100.0
	if a.totalFrames > 0 {
		temporalPct = pct(a.analyzedFrames, a.totalFrames)
	}

	lufsPct := 100.0
	if a.totalAudioS > 0 {
		lufsPct = pctF(a.loudnessTracedS, a.totalAudioS)
	}

	// By convention, zero speech segments report 100% STOI coverage
	// (spec §8 boundary behavior: silent video).
	stoiPct := 100.0
	if a.speechS > 0 {
		stoiPct = pctF(a.speechClarityS, a.speechS)
	}

	return vab.Coverage{
		Spatial: vab.SpatialCoverage{
			TileSize:         a.tileSize,
			Stride:           a.stride,
			SRUsed:           a.srUsed,
			PixelsCoveredPct: spatialPct,
			MinDetectablePx:  minDetectablePx,
		},
		Temporal: vab.TemporalCoverage{
			FrameStride:       a.frameStride,
			FramesAnalyzedPct: temporalPct,
		},
		Audio: vab.AudioCoverage{
			LUFSTracePct: lufsPct,
			STOIPct:      stoiPct,
		},
	}
}

// Gate evaluates the coverage snapshot against thresholds and returns
// (ok, reasons). A reason is added for every unmet threshold.
func Gate(cov vab.Coverage, th Thresholds) (bool, []string) {
	var reasons []string
	ok := true

	if cov.Temporal.FramesAnalyzedPct < th.FramesAnalyzedPct {
		ok = false
		reasons = append(reasons, "temporal_coverage_below_threshold")
	}
	if cov.Audio.LUFSTracePct < th.LUFSTracePct {
		ok = false
		reasons = append(reasons, "lufs_trace_below_threshold")
	}
	if cov.Audio.STOIPct < th.STOIPct {
		ok = false
		reasons = append(reasons, "stoi_coverage_below_threshold")
	}
	if th.MinDetectablePx > 0 && cov.Spatial.MinDetectablePx > th.MinDetectablePx {
		ok = false
		reasons = append(reasons, "min_detectable_px_above_threshold")
	}
	return ok, reasons
}

// unionOfTilesPct computes the actual fraction of frame pixels covered by a
// tileSize×tileSize grid of tiles placed at stride intervals in both
// dimensions (spec §4.4's tiling pass; §4.6's testable property: "spatial
// coverage equals the union-of-tiles fraction for the configured
// tile/stride"). A tile grid is the cross product of its per-axis
// placements, so a pixel is covered iff both its x and y coordinates fall
// inside some placed tile along that axis; the area fraction is therefore
// the product of the two axes' covered fractions. With stride <= tileSize
// (the default 512/256) each axis is fully covered, so the result is 100%;
// with stride > tileSize, gaps between tiles are reflected directly,
// matching spec §8's frames-smaller-than-tile-size case (one tile, 100%)
// and the gapping case (< 100%) alike.
func unionOfTilesPct(tileSize, stride, frameWidth, frameHeight int) float64 {
	if frameWidth <= 0 || frameHeight <= 0 {
		// No resolution known (e.g. unit tests exercising only temporal/audio
		// coverage): fall back to the asymptotic per-axis ratio.
		axisFrac := axisCoverageFraction(tileSize, stride)
		return 100.0 * axisFrac * axisFrac
	}
	xFrac := float64(axisCoveredPx(frameWidth, tileSize, stride)) / float64(frameWidth)
	yFrac := float64(axisCoveredPx(frameHeight, tileSize, stride)) / float64(frameHeight)
	return 100.0 * xFrac * yFrac
}

// axisCoveredPx returns how many of the length pixels along one axis are
// covered by tiles of width tileSize placed at 0, stride, 2*stride, ...
// (clipped to length), merging overlapping placements.
func axisCoveredPx(length, tileSize, stride int) int {
	if length <= 0 || tileSize <= 0 {
		return 0
	}
	if length <= tileSize {
		// One tile spans the whole axis (spec §8: tiny-video degenerates to
		// one tile).
		return length
	}
	if stride <= 0 {
		// Degenerate stride: treated as densely overlapping placements, so
		// the whole axis is covered.
		return length
	}

	covered := 0
	prevEnd := 0
	for pos := 0; pos < length; pos += stride {
		end := pos + tileSize
		if end > length {
			end = length
		}
		start := pos
		if start < prevEnd {
			start = prevEnd
		}
		if end > start {
			covered += end - start
			prevEnd = end
		}
		if pos+tileSize >= length {
			break
		}
	}
	return covered
}

// axisCoverageFraction is the steady-state (resolution-agnostic) per-axis
// coverage fraction, used only when no frame resolution is available.
func axisCoverageFraction(tileSize, stride int) float64 {
	if tileSize <= 0 {
		return 1.0
	}
	if stride <= 0 {
		return 1.0
	}
	frac := float64(tileSize) / float64(stride)
	if frac > 1.0 {
		frac = 1.0
	}
	return frac
}

func pct(numerator, denominator int) float64 {
	if denominator == 0 {
		return 100.0
	}
	return 100.0 * float64(numerator) / float64(denominator)
}

func pctF(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 100.0
	}
	return 100.0 * numerator / denominator
}

// Package prep produces shots (and their decoded frame/audio references)
// from a source video, ahead of DAG scheduling. Real video decode, keyframe
// extraction, and shot-boundary detection are external collaborators per
// spec §1; this package defines the seam the scheduler depends on and a
// deterministic stub implementation usable without a decoder binary.
package prep

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vabforge/vab-orchestrator/internal/vab"
	"github.com/vabforge/vab-orchestrator/internal/verrors"
)

// Segmenter decodes a source video into shots with frame paths already
// written to disk under the job's store directory, satisfying invariant 1
// from spec §3 ("for every frame in every shot, exactly one decoded path
// exists on disk before any detector runs").
type Segmenter interface {
	Segment(ctx context.Context, videoID, sourcePath, storeDir string) (Result, error)
}

// Result is prep's output: the ordered shots plus whole-video metadata
// needed for the bundle's global stats block.
type Result struct {
	Shots       []vab.Shot
	TotalFrames int
	DurationS   float64
	FPS         float64
	Resolution  vab.Resolution
	SHA256      string
}

// FixedWindowSegmenter is a deterministic stand-in: it divides the source
// into fixed-length windows instead of running real shot-boundary
// detection, so the scheduler, merge, and coverage logic can be exercised
// end-to-end without ffmpeg or a cut detector present. It only names the
// frame paths under storeDir; it does not decode or write any frame to disk.
type FixedWindowSegmenter struct {
	FrameCountPerShot int
	FPS               float64
	FrameWidth        int
	FrameHeight       int
}

// NewFixedWindowSegmenter returns a segmenter producing shots of
// framesPerShot frames at the given fps, used by default when no real
// decoder is configured.
func NewFixedWindowSegmenter(framesPerShot int, fps float64) *FixedWindowSegmenter {
	if framesPerShot <= 0 {
		framesPerShot = 90
	}
	if fps <= 0 {
		fps = 30
	}
	return &FixedWindowSegmenter{FrameCountPerShot: framesPerShot, FPS: fps, FrameWidth: 640, FrameHeight: 360}
}

// Segment implements Segmenter. sourcePath is expected to already exist
// under storeDir (written by the ingest/analyze HTTP handlers); this stub
// does not itself read the file's contents, only its size for identity.
func (f *FixedWindowSegmenter) Segment(ctx context.Context, videoID, sourcePath, storeDir string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	totalFrames, err := estimateFrameCount(sourcePath, f.FPS)
	if err != nil {
		return Result{}, verrors.Newf("prep: estimate frame count for %s: %w", videoID, err).
			Category(verrors.CategoryPrep).
			Component("prep").
			Build()
	}
	if totalFrames <= 0 {
		return Result{}, verrors.Newf("prep: no frames decoded for %s", videoID).
			Category(verrors.CategoryPrep).
			Component("prep").
			Build()
	}

	framesDir := filepath.Join(storeDir, "frames")

	var shots []vab.Shot
	shotIndex := 0
	for start := 0; start < totalFrames; start += f.FrameCountPerShot {
		end := min(start+f.FrameCountPerShot, totalFrames)
		frameCount := end - start

		framePaths := make([]string, frameCount)
		for i := range frameCount {
			framePaths[i] = filepath.Join(framesDir, fmt.Sprintf("frame_%08d.jpg", start+i))
		}

		shots = append(shots, vab.Shot{
			ShotID:     fmt.Sprintf("shot-%d", shotIndex),
			Index:      shotIndex,
			StartFrame: start,
			EndFrame:   end,
			FrameCount: frameCount,
			DurationS:  float64(frameCount) / f.FPS,
			FramePaths: framePaths,
			AudioWindow: vab.AudioWindow{
				StartS: float64(start) / f.FPS,
				EndS:   float64(end) / f.FPS,
			},
		})
		shotIndex++
	}

	return Result{
		Shots:       shots,
		TotalFrames: totalFrames,
		DurationS:   float64(totalFrames) / f.FPS,
		FPS:         f.FPS,
		Resolution:  vab.Resolution{W: f.FrameWidth, H: f.FrameHeight},
		SHA256:      "",
	}, nil
}

package detectoradapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
	"github.com/vabforge/vab-orchestrator/internal/verrors"
	"github.com/vabforge/vab-orchestrator/internal/vlclient"
)

// VLReasoning drives Phase C: samples up to QwenContextMaxFrames frames and
// calls the VL endpoint. The model is served by an external collaborator
// over HTTP, so ResourceClass reports ClassIO and the scheduler invokes it
// outside any GPU-pool permit.
type VLReasoning struct {
	Client *vlclient.Client
}

func (VLReasoning) Kind() vab.DetectorKind                { return vab.KindVLReasoning }
func (VLReasoning) ResourceClass() detector.ResourceClass { return detector.ClassIO }

func (v VLReasoning) Detect(ctx context.Context, shot *vab.Shot, cfg detector.Config, dst *vab.ShotResult) (detector.Result, error) {
	if v.Client == nil {
		return detector.Result{}, detector.NewFault(vab.KindVLReasoning, detector.FaultInternal, "vl client not configured", nil)
	}

	frames := sampleFrames(shot.FramePaths, cfg.QwenContextMaxFrames)
	summary := detectorSummary(dst)

	reasoning, err := v.Client.Reason(ctx, frames, summary)
	if err != nil {
		dst.Summary = ""
		return detector.Result{Skipped: true, Provenance: skippedProvenance("vl-reasoning", vlSkipReason(err))}, nil
	}

	dst.Summary = reasoning.Summary
	dst.Mood = reasoning.Mood
	dst.Intent = reasoning.Intent
	dst.CompositionNotes = reasoning.CompositionNotes
	dst.TransitionGuess = reasoning.TransitionGuess

	prov := newProvenance("vl-reasoning", "vl-remote", map[string]any{
		"max_frames": cfg.QwenContextMaxFrames,
	})
	return detector.Result{Provenance: prov}, nil
}

// vlSkipReason tells a malformed VL response (spec §4.4: "otherwise records
// an empty reasoning block with reason parse_failed") apart from an endpoint
// that never answered at all.
func vlSkipReason(err error) string {
	var enhanced *verrors.EnhancedError
	if errors.As(err, &enhanced) && enhanced.Category == verrors.CategoryValidation {
		return "parse_failed"
	}
	return "vl_unreachable"
}

func sampleFrames(paths []string, maxFrames int) []vlclient.Frame {
	if maxFrames <= 0 {
		maxFrames = 1
	}
	if len(paths) == 0 {
		return nil
	}
	if len(paths) <= maxFrames {
		out := make([]vlclient.Frame, len(paths))
		for i, p := range paths {
			out[i] = vlclient.Frame{Index: i, Path: p}
		}
		return out
	}

	step := float64(len(paths)-1) / float64(maxFrames-1)
	out := make([]vlclient.Frame, 0, maxFrames)
	for i := range maxFrames {
		idx := int(float64(i) * step)
		out = append(out, vlclient.Frame{Index: idx, Path: paths[idx]})
	}
	return out
}

func detectorSummary(dst *vab.ShotResult) string {
	return fmt.Sprintf("objects=%d faces=%d text=%d sr_used=%v",
		len(dst.Detectors.Objects), len(dst.Detectors.Faces), len(dst.Detectors.Text), dst.Detectors.SRUsed)
}

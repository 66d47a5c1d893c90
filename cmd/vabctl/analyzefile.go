package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vabforge/vab-orchestrator/internal/conf"
	"github.com/vabforge/vab-orchestrator/internal/coverage"
	_ "github.com/vabforge/vab-orchestrator/internal/detectoradapters"
	"github.com/vabforge/vab-orchestrator/internal/gpupool"
	"github.com/vabforge/vab-orchestrator/internal/jobmanager"
	"github.com/vabforge/vab-orchestrator/internal/jobstore"
	"github.com/vabforge/vab-orchestrator/internal/merge"
	"github.com/vabforge/vab-orchestrator/internal/metrics"
	"github.com/vabforge/vab-orchestrator/internal/prep"
	"github.com/vabforge/vab-orchestrator/internal/scheduler"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

// analyzeFileCommand runs one job synchronously against a local file and
// prints the resulting bundle, for local testing without standing up the
// HTTP boundary or a durable store.
func analyzeFileCommand(settings **conf.Settings) *cobra.Command {
	var noSR, noTiling, lightAudio bool

	cmd := &cobra.Command{
		Use:   "analyze-file [path]",
		Short: "Analyze a single local video file and print the resulting bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyzeFile(*settings, args[0], vab.Ablations{
				NoSR:       noSR,
				NoTiling:   noTiling,
				LightAudio: lightAudio,
			})
		},
	}
	cmd.Flags().BoolVar(&noSR, "no-sr", false, "disable super-resolution")
	cmd.Flags().BoolVar(&noTiling, "no-tiling", false, "disable tiled multi-scale detection")
	cmd.Flags().BoolVar(&lightAudio, "light-audio", false, "reduce audio engineering to the cheap path")
	return cmd
}

func runAnalyzeFile(s *conf.Settings, path string, ablations vab.Ablations) error {
	storeDir, err := os.MkdirTemp("", "vabctl-analyze-*")
	if err != nil {
		return fmt.Errorf("creating scratch store: %w", err)
	}
	defer os.RemoveAll(storeDir)

	store := jobstore.NewSQLiteStore(filepath.Join(storeDir, "jobs.db"))
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening scratch job store: %w", err)
	}
	defer store.Close()

	pool := gpupool.New(s.Runtime.GPUSemaphore)
	sched := scheduler.New(pool, nil, metrics.NewNoOpRecorder(), scheduler.Deadlines{
		GPUHeavy: s.Runtime.Deadlines.GPUHeavy,
		CPU:      s.Runtime.Deadlines.CPU,
		VL:       s.Runtime.Deadlines.VL,
	})

	cfg := jobmanager.Config{
		TileSize:         s.Detection.Tile.Size,
		TileStride:       s.Detection.Tile.Stride,
		SmallObjectMinPx: s.Detection.SmallObjectMinPx,
		FrameStride:      s.Runtime.FrameStride,
		SRUpscaleScale:   s.Detection.SuperRes.UpscaleScale,
		Coverage: coverage.Thresholds{
			FramesAnalyzedPct: s.Coverage.FramesAnalyzedPct,
			LUFSTracePct:      s.Coverage.LufsTracePct,
			STOIPct:           s.Coverage.StoiPct,
			MinDetectablePx:   s.Detection.SmallObjectMinPx,
		},
		Merge: merge.Config{
			SceneSSIMThreshold: s.Merge.SceneSSIMThreshold,
			MaxSceneGapS:       s.Merge.MaxSceneGapS,
		},
		MaxInternalErrorShotPct: s.FailureBudget.MaxInternalErrorShotPct,
		LadderOrder:             parseLadderOrder(s.Runtime.OOMFallbackOrder),
		QwenContextMaxFrames:    s.Runtime.QwenContextMaxFrames,
		StoreDir:                storeDir,
	}

	mgr := jobmanager.New(store, prep.NewFixedWindowSegmenter(90, 30), sched, cfg, metrics.NewNoOpRecorder())

	videoID := filepath.Base(path)
	ctx := context.Background()
	if _, err := mgr.Submit(ctx, videoID, "", path, ablations); err != nil {
		return fmt.Errorf("submitting job: %w", err)
	}

	deadline := time.Now().Add(10 * time.Minute)
	for time.Now().Before(deadline) {
		job, err := mgr.Status(ctx, videoID)
		if err != nil {
			return fmt.Errorf("reading job status: %w", err)
		}
		if job.State == vab.JobCompleted || job.State == vab.JobFailed {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	bundle, err := mgr.Result(ctx, videoID)
	if err != nil {
		return fmt.Errorf("reading result: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(bundle)
}

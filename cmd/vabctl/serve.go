package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vabforge/vab-orchestrator/internal/api"
	"github.com/vabforge/vab-orchestrator/internal/conf"
	"github.com/vabforge/vab-orchestrator/internal/coverage"
	_ "github.com/vabforge/vab-orchestrator/internal/detectoradapters"
	"github.com/vabforge/vab-orchestrator/internal/fallback"
	"github.com/vabforge/vab-orchestrator/internal/gpupool"
	"github.com/vabforge/vab-orchestrator/internal/jobmanager"
	"github.com/vabforge/vab-orchestrator/internal/jobstore"
	"github.com/vabforge/vab-orchestrator/internal/logging"
	"github.com/vabforge/vab-orchestrator/internal/merge"
	"github.com/vabforge/vab-orchestrator/internal/metrics"
	"github.com/vabforge/vab-orchestrator/internal/prep"
	"github.com/vabforge/vab-orchestrator/internal/scheduler"
	"github.com/vabforge/vab-orchestrator/internal/vlclient"
)

// serveCommand starts the HTTP boundary and the job manager's replay loop,
// wiring every process-scoped collaborator (pool, VL client, store,
// scheduler, metrics) exactly once at startup (spec §9: no ambient globals).
func serveCommand(settings **conf.Settings) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis orchestrator's HTTP boundary",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *settings
			if listen == "" {
				listen = s.HTTP.Listen
				if listen == "" {
					listen = ":8089"
				}
			}
			return runServe(s, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (overrides config)")
	return cmd
}

func runServe(s *conf.Settings, listen string) error {
	log := logging.ForComponent("vabctl")

	store := jobstore.NewSQLiteStore(filepath.Join(s.Store.Path, "jobs.db"))
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening job store: %w", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	rec := metrics.NewOrchestratorMetrics(reg)

	pool := gpupool.New(s.Runtime.GPUSemaphore)

	var vl *vlclient.Client
	if s.VL.APIBase != "" {
		var err error
		vl, err = vlclient.NewClient(vlclient.Config{APIBase: s.VL.APIBase, Model: s.VL.Model})
		if err != nil {
			return fmt.Errorf("constructing VL client: %w", err)
		}
		defer vl.Close()
	}

	sched := scheduler.New(pool, vl, rec, scheduler.Deadlines{
		GPUHeavy: s.Runtime.Deadlines.GPUHeavy,
		CPU:      s.Runtime.Deadlines.CPU,
		VL:       s.Runtime.Deadlines.VL,
	})

	mgrCfg := jobmanager.Config{
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
		StoreDir:                s.Store.Path,
	}

	segmenter := prep.NewFixedWindowSegmenter(90, 30)
	mgr := jobmanager.New(store, segmenter, sched, mgrCfg, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("replaying in-flight jobs: %w", err)
	}

	srv := api.New(api.Config{
		Listen:        listen,
		MaxVideoMB:    s.HTTP.MaxVideoMB,
		MimeWhitelist: s.HTTP.MimeWhitelist,
	}, mgr, store, pool, vl)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("serving", "listen", listen)
	return srv.Start()
}

func parseLadderOrder(names []string) []fallback.Step {
	if len(names) == 0 {
		return fallback.DefaultOrder
	}
	out := make([]fallback.Step, 0, len(names))
	for _, n := range names {
		out = append(out, fallback.Step(n))
	}
	return out
}

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vabforge/vab-orchestrator/internal/jobstore"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

// analyzeRequest is the body of POST /analyze (spec §6).
type analyzeRequest struct {
	VideoID  string `json:"video_id"`
	MediaURL string `json:"media_url"`
	Ablations struct {
		NoSR       bool `json:"no_sr"`
		NoTiling   bool `json:"no_tiling"`
		LightAudio bool `json:"light_audio"`
	} `json:"ablations"`
}

type analyzeResponse struct {
	JobID   string `json:"job_id"`
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// handleAnalyze implements POST /analyze: accepts a video_id (and optional
// media_url / ablation flags), returning 200 on an idempotent hit against a
// terminal or running job, or enqueuing a fresh job.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("malformed request body"))
	}
	if req.VideoID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("video_id is required"))
	}

	sourcePath := filepath.Join(s.storeDir(), req.VideoID, "video.mp4")
	ablations := vab.Ablations{
		NoSR:       req.Ablations.NoSR,
		NoTiling:   req.Ablations.NoTiling,
		LightAudio: req.Ablations.LightAudio,
	}

	outcome, err := s.manager.Submit(c.Request().Context(), req.VideoID, req.MediaURL, sourcePath, ablations)
	if err != nil {
		s.log.Error("analyze: submit failed", "video_id", req.VideoID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("failed to submit job"))
	}

	status := http.StatusOK
	msg := ""
	switch {
	case outcome.Conflict:
		status = http.StatusConflict
		msg = "video_id already exists with different media_url or ablations"
	case outcome.Started:
		status = http.StatusOK
		msg = "job accepted"
	case outcome.Job.State == vab.JobRunning || outcome.Job.State == vab.JobQueued:
		msg = "job already running"
	case outcome.Job.State == vab.JobCompleted:
		msg = "job already completed"
	}

	return c.JSON(status, analyzeResponse{
		JobID:   outcome.Job.VideoID,
		VideoID: outcome.Job.VideoID,
		Status:  string(outcome.Job.State),
		Message: msg,
	})
}

type ingestResponse struct {
	VideoID string `json:"video_id"`
	Path    string `json:"path"`
}

// handleIngest implements POST /ingest: stores an uploaded video under
// store/<video_id>/video.mp4 after MIME and size validation (spec §6).
func (s *Server) handleIngest(c echo.Context) error {
	videoID := c.FormValue("video_id")
	if videoID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("video_id is required"))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("file is required"))
	}

	maxBytes := s.cfg.MaxVideoMB * 1024 * 1024
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, errorBody("file exceeds MAX_VIDEO_MB"))
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !mimeAllowed(contentType, s.cfg.MimeWhitelist) {
		return c.JSON(http.StatusUnsupportedMediaType, errorBody("unsupported content type: "+contentType))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("failed to open uploaded file"))
	}
	defer src.Close()

	destDir := filepath.Join(s.storeDir(), videoID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		s.log.Error("ingest: create directory failed", "video_id", videoID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("failed to prepare storage"))
	}

	destPath := filepath.Join(destDir, "video.mp4")
	dst, err := os.Create(destPath)
	if err != nil {
		s.log.Error("ingest: create file failed", "video_id", videoID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("failed to store video"))
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		s.log.Error("ingest: write failed", "video_id", videoID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("failed to store video"))
	}
	if maxBytes > 0 && written > maxBytes {
		_ = os.Remove(destPath)
		return c.JSON(http.StatusRequestEntityTooLarge, errorBody("file exceeds MAX_VIDEO_MB"))
	}

	return c.JSON(http.StatusCreated, ingestResponse{VideoID: videoID, Path: destPath})
}

type statusResponse struct {
	JobID        string `json:"job_id"`
	VideoID      string `json:"video_id"`
	State        string `json:"state"`
	Progress     int    `json:"progress"`
	Message      string `json:"message,omitempty"`
	VABAvailable bool   `json:"vab_available"`
}

// handleStatus implements GET /status/{video_id}.
func (s *Server) handleStatus(c echo.Context) error {
	videoID := c.Param("video_id")
	job, err := s.manager.Status(c.Request().Context(), videoID)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorBody("job not found"))
		}
		s.log.Error("status: lookup failed", "video_id", videoID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("failed to read job status"))
	}
	return c.JSON(http.StatusOK, statusResponse{
		JobID:        job.VideoID,
		VideoID:      job.VideoID,
		State:        string(job.State),
		Progress:     job.Progress,
		Message:      job.Message,
		VABAvailable: job.State == vab.JobCompleted,
	})
}

// handleResult implements GET /result/{video_id}: the full bundle JSON for
// a completed job, 404 if unknown, 409 if still running.
func (s *Server) handleResult(c echo.Context) error {
	videoID := c.Param("video_id")
	ctx := c.Request().Context()

	job, err := s.manager.Status(ctx, videoID)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorBody("job not found"))
		}
		s.log.Error("result: lookup failed", "video_id", videoID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("failed to read job"))
	}
	if job.State == vab.JobQueued || job.State == vab.JobRunning {
		return c.JSON(http.StatusConflict, errorBody("job still running"))
	}

	bundle, err := s.manager.Result(ctx, videoID)
	if err != nil {
		return c.JSON(http.StatusNotFound, errorBody("no result available"))
	}
	return c.JSON(http.StatusOK, bundle)
}

type healthResponse struct {
	Status         string `json:"status"`
	GPUAvailable   bool   `json:"gpu_available"`
	QueueConnected bool   `json:"queue_connected"`
	VLAvailable    bool   `json:"vl_available"`
}

// handleHealth implements GET /health: a standalone liveness probe, never
// dependent on any single job's state (spec §6).
func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	queueOK := s.store != nil && s.store.Ping(ctx) == nil
	vlOK := s.vl != nil && s.vl.Healthy(ctx)
	gpuOK := s.pool != nil

	status := "ok"
	if !queueOK {
		status = "degraded"
	}

	return c.JSON(http.StatusOK, healthResponse{
		Status:         status,
		GPUAvailable:   gpuOK,
		QueueConnected: queueOK,
		VLAvailable:    vlOK,
	})
}

func (s *Server) storeDir() string {
	if s.manager == nil {
		return "store"
	}
	return s.manager.Config.StoreDir
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func mimeAllowed(contentType string, whitelist []string) bool {
	if len(whitelist) == 0 {
		return true
	}
	for _, m := range whitelist {
		if m == contentType {
			return true
		}
	}
	return false
}

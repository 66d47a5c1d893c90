package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vabforge/vab-orchestrator/internal/coverage"
	_ "github.com/vabforge/vab-orchestrator/internal/detectoradapters"
	"github.com/vabforge/vab-orchestrator/internal/fallback"
	"github.com/vabforge/vab-orchestrator/internal/gpupool"
	"github.com/vabforge/vab-orchestrator/internal/jobmanager"
	"github.com/vabforge/vab-orchestrator/internal/jobstore"
	"github.com/vabforge/vab-orchestrator/internal/merge"
	"github.com/vabforge/vab-orchestrator/internal/metrics"
	"github.com/vabforge/vab-orchestrator/internal/prep"
	"github.com/vabforge/vab-orchestrator/internal/scheduler"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	storeDir := t.TempDir()

	store := jobstore.NewSQLiteStore(filepath.Join(storeDir, "jobs.db"))
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	pool := gpupool.New(2)
	sched := scheduler.New(pool, nil, metrics.NewTestRecorder(), scheduler.Deadlines{
		GPUHeavy: 5 * time.Second,
		CPU:      5 * time.Second,
		VL:       5 * time.Second,
	})

	cfg := jobmanager.Config{
		TileSize:         512,
		TileStride:       256,
		SmallObjectMinPx: 8,
		FrameStride:      1,
		Coverage: coverage.Thresholds{
			FramesAnalyzedPct: 99,
			LUFSTracePct:      100,
			STOIPct:           90,
			MinDetectablePx:   8,
		},
		Merge:                   merge.Config{SceneSSIMThreshold: 0.45, MaxSceneGapS: 1.0},
		MaxInternalErrorShotPct: 0.2,
		LadderOrder:             fallback.DefaultOrder,
		QwenContextMaxFrames:    16,
		StoreDir:                storeDir,
	}

	mgr := jobmanager.New(store, prep.NewFixedWindowSegmenter(90, 30), sched, cfg, metrics.NewTestRecorder())

	srv := New(Config{
		MaxVideoMB:    10,
		MimeWhitelist: []string{"video/mp4"},
	}, mgr, store, pool, nil)

	return srv
}

func waitForTerminalStatus(t *testing.T, srv *Server, videoID string) statusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/status/"+videoID, nil)
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var got statusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		if got.State == "completed" || got.State == "failed" {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state in time", videoID)
	return statusResponse{}
}

func TestHealthReportsQueueConnected(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.QueueConnected)
	require.True(t, got.GPUAvailable)
	require.False(t, got.VLAvailable)
}

func TestIngestThenAnalyzeThenResult(t *testing.T) {
	srv := newTestServer(t)

	videoID := "vid-http-1"
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("video_id", videoID))
	part, err := w.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="video.mp4"`},
		"Content-Type":        {"video/mp4"},
	})
	require.NoError(t, err)
	_, err = part.Write(make([]byte, 1024))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	analyzeBody, err := json.Marshal(analyzeRequest{VideoID: videoID})
	require.NoError(t, err)
	req2 := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(analyzeBody))
	req2.Header.Set("Content-Type", "application/json")
	rec2 := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)

	status := waitForTerminalStatus(t, srv, videoID)
	require.Equal(t, "completed", status.State)
	require.True(t, status.VABAvailable)

	req3 := httptest.NewRequest(http.MethodGet, "/result/"+videoID, nil)
	rec3 := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec3, req3)
	require.Equal(t, http.StatusOK, rec3.Code)
}

func TestIngestRejectsOversizeUpload(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("video_id", "vid-big"))
	part, err := w.CreateFormFile("file", "video.mp4")
	require.NoError(t, err)
	_, err = part.Write(make([]byte, 11*1024*1024))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	_, statErr := os.Stat(filepath.Join(srv.storeDir(), "vid-big", "video.mp4"))
	require.True(t, os.IsNotExist(statErr))
}

func TestIngestRejectsUnsupportedMIME(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("video_id", "vid-bad-mime"))
	part, err := w.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="x.txt"`},
		"Content-Type":        {"text/plain"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("not a video"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestStatusUnknownVideoReturns404(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/status/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeRejectsMissingVideoID(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

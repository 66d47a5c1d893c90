package jobstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, s.Open())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &vab.Job{
		VideoID:   "vid-1",
		State:     vab.JobQueued,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.Create(ctx, job))

	got, err := s.Get(ctx, "vid-1")
	require.NoError(t, err)
	require.Equal(t, vab.JobQueued, got.State)
	require.Equal(t, "vid-1", got.VideoID)
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStateStampsFinishedAtOnTerminalState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &vab.Job{VideoID: "vid-2", State: vab.JobQueued, CreatedAt: time.Now()}))

	require.NoError(t, s.UpdateState(ctx, "vid-2", vab.JobRunning, "running"))
	got, err := s.Get(ctx, "vid-2")
	require.NoError(t, err)
	require.Nil(t, got.FinishedAt)

	require.NoError(t, s.UpdateState(ctx, "vid-2", vab.JobCompleted, "done"))
	got, err = s.Get(ctx, "vid-2")
	require.NoError(t, err)
	require.NotNil(t, got.FinishedAt)
}

func TestUpdateProgressOnMissingJobReturnsErrNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateProgress(context.Background(), "missing", 50, "halfway")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReplayNonTerminalExcludesCompletedAndFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &vab.Job{VideoID: "queued", State: vab.JobQueued, CreatedAt: time.Now()}))
	require.NoError(t, s.Create(ctx, &vab.Job{VideoID: "running", State: vab.JobRunning, CreatedAt: time.Now()}))
	require.NoError(t, s.Create(ctx, &vab.Job{VideoID: "done", State: vab.JobCompleted, CreatedAt: time.Now()}))
	require.NoError(t, s.Create(ctx, &vab.Job{VideoID: "failed", State: vab.JobFailed, CreatedAt: time.Now()}))

	replay, err := s.ReplayNonTerminal(ctx)
	require.NoError(t, err)
	ids := make(map[string]bool, len(replay))
	for _, j := range replay {
		ids[j.VideoID] = true
	}
	require.True(t, ids["queued"])
	require.True(t, ids["running"])
	require.False(t, ids["done"])
	require.False(t, ids["failed"])
}

func TestSaveLadderStateAndBundlePath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &vab.Job{VideoID: "vid-3", State: vab.JobRunning, CreatedAt: time.Now()}))

	require.NoError(t, s.SaveLadderState(ctx, "vid-3", `{"level":1}`))
	require.NoError(t, s.SaveBundlePath(ctx, "vid-3", "/store/vid-3/vab.json"))

	var rec Record
	require.NoError(t, s.DB.WithContext(ctx).Where("video_id = ?", "vid-3").First(&rec).Error)
	require.Equal(t, `{"level":1}`, rec.LadderState)
	require.Equal(t, "/store/vid-3/vab.json", rec.BundlePath)
}

package prep

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFakeVideo(t *testing.T, size int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestSegmentProducesContiguousShots(t *testing.T) {
	source := writeFakeVideo(t, 64*1024*10) // ~10s at the stub's ratio
	seg := NewFixedWindowSegmenter(90, 30)

	result, err := seg.Segment(context.Background(), "v1", source, t.TempDir())
	require.NoError(t, err)
	require.NotEmpty(t, result.Shots)

	for i, s := range result.Shots {
		require.Equal(t, i, s.Index)
		if i > 0 {
			require.Equal(t, result.Shots[i-1].EndFrame, s.StartFrame, "shots must be contiguous without gaps or overlap")
		}
	}
	require.Equal(t, result.Shots[len(result.Shots)-1].EndFrame, result.TotalFrames)
}

func TestSegmentTinyVideoYieldsOneShot(t *testing.T) {
	source := writeFakeVideo(t, 1024)
	seg := NewFixedWindowSegmenter(90, 30)

	result, err := seg.Segment(context.Background(), "tiny", source, t.TempDir())
	require.NoError(t, err)
	require.Len(t, result.Shots, 1)
}

func TestSegmentMissingSourceFails(t *testing.T) {
	seg := NewFixedWindowSegmenter(90, 30)
	_, err := seg.Segment(context.Background(), "missing", "/nonexistent/video.mp4", t.TempDir())
	require.Error(t, err)
}

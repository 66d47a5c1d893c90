package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runtime:\n  gpusemaphore: 4\n"), 0o644))

	s, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, 4, s.Runtime.GPUSemaphore)
	require.Equal(t, 512, s.Detection.Tile.Size, "unset tile size should fall back to default")
	require.Equal(t, 1, s.Runtime.FrameStride)
}

func TestValidateSettingsRejectsZeroGPUSemaphore(t *testing.T) {
	s := &Settings{}
	s.Runtime.GPUSemaphore = 0
	s.Store.Path = "store"
	s.HTTP.MaxVideoMB = 1
	s.HTTP.MimeWhitelist = []string{"video/mp4"}
	s.Coverage.FramesAnalyzedPct = 99
	s.Merge.SceneSSIMThreshold = 0.45

	err := validateSettings(s)
	require.Error(t, err)
}

func TestValidateSettingsFillsTileDefaults(t *testing.T) {
	s := &Settings{}
	s.Runtime.GPUSemaphore = 1
	s.Store.Path = "store"
	s.HTTP.MaxVideoMB = 1
	s.HTTP.MimeWhitelist = []string{"video/mp4"}
	s.Coverage.FramesAnalyzedPct = 99
	s.Merge.SceneSSIMThreshold = 0.45

	require.NoError(t, validateSettings(s))
	require.Equal(t, 512, s.Detection.Tile.Size)
	require.Equal(t, 256, s.Detection.Tile.Stride)
	require.Equal(t, 8, s.Detection.SmallObjectMinPx)
}

package jobstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vabforge/vab-orchestrator/internal/vab"
)

func TestSaveBundleThenLoadBundleRoundTrips(t *testing.T) {
	storeDir := t.TempDir()
	bundle := &vab.Bundle{
		SchemaVersion: vab.SchemaVersion,
		Video:         vab.VideoMeta{VideoID: "vid-1", SHA256: "abc"},
	}

	path, err := SaveBundle(storeDir, "vid-1", bundle)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(storeDir, "vid-1", "vab.json"), path)

	loaded, err := LoadBundle(path)
	require.NoError(t, err)
	require.Equal(t, "vid-1", loaded.Video.VideoID)
	require.Equal(t, vab.SchemaVersion, loaded.SchemaVersion)
}

func TestSaveBundleOverwritesExisting(t *testing.T) {
	storeDir := t.TempDir()
	first := &vab.Bundle{Video: vab.VideoMeta{VideoID: "vid-1", SHA256: "first"}}
	second := &vab.Bundle{Video: vab.VideoMeta{VideoID: "vid-1", SHA256: "second"}}

	_, err := SaveBundle(storeDir, "vid-1", first)
	require.NoError(t, err)
	path, err := SaveBundle(storeDir, "vid-1", second)
	require.NoError(t, err)

	loaded, err := LoadBundle(path)
	require.NoError(t, err)
	require.Equal(t, "second", loaded.Video.SHA256)
}

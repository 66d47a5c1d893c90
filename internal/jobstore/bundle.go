package jobstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/vabforge/vab-orchestrator/internal/vab"
	"github.com/vabforge/vab-orchestrator/internal/verrors"
)

// SaveBundle atomically persists bundle as storeDir/<video_id>/vab.json: it
// writes to a temp file in the same directory then renames over the final
// path, so a crash mid-write never leaves a partially-written bundle for
// the result endpoint to read (spec §4.7).
func SaveBundle(storeDir, videoID string, bundle *vab.Bundle) (string, error) {
	dir := filepath.Join(storeDir, videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", verrors.Newf("jobstore: create bundle directory %s: %w", dir, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}

	final := filepath.Join(dir, "vab.json")

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", verrors.Newf("jobstore: marshal bundle for %s: %w", videoID, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}

	tmp, err := os.CreateTemp(dir, "vab-*.json.tmp")
	if err != nil {
		return "", verrors.Newf("jobstore: create temp bundle file for %s: %w", videoID, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", verrors.Newf("jobstore: write temp bundle file for %s: %w", videoID, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", verrors.Newf("jobstore: sync temp bundle file for %s: %w", videoID, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", verrors.Newf("jobstore: close temp bundle file for %s: %w", videoID, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}

	if err := os.Rename(tmpPath, final); err != nil {
		_ = os.Remove(tmpPath)
		return "", verrors.Newf("jobstore: rename bundle into place for %s: %w", videoID, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}

	return final, nil
}

// LoadBundle reads back a previously saved bundle.
func LoadBundle(path string) (*vab.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, verrors.Newf("jobstore: read bundle %s: %w", path, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	var bundle vab.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, verrors.Newf("jobstore: unmarshal bundle %s: %w", path, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	return &bundle, nil
}

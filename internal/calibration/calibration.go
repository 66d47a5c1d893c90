// Package calibration loads the static per-detector-family accuracy table
// that every bundle reports in its top-level calibration list (spec.md §9
// Bundle schema). The table is fixed at build time, not tuned per job, so it is
// parsed once and cached.
package calibration

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/vabforge/vab-orchestrator/internal/vab"
)

//go:embed table.yaml
var tableYAML []byte

// entry mirrors vab.Calibration with lowercase YAML keys.
type entry struct {
	Family      string  `yaml:"family"`
	ExpectedTPR float64 `yaml:"expected_tpr"`
	ExpectedFPR float64 `yaml:"expected_fpr"`
}

var (
	loadOnce sync.Once
	loaded   []vab.Calibration
	loadErr  error
)

// Table returns the parsed calibration table, keyed by detector kind in the
// order table.yaml declares them. The table is parsed once; callers get a
// fresh copy each time so a caller can't mutate the shared cache.
func Table() ([]vab.Calibration, error) {
	loadOnce.Do(func() {
		var entries []entry
		if err := yaml.Unmarshal(tableYAML, &entries); err != nil {
			loadErr = fmt.Errorf("calibration: parse table.yaml: %w", err)
			return
		}
		loaded = make([]vab.Calibration, len(entries))
		for i, e := range entries {
			loaded[i] = vab.Calibration{
				Family:      e.Family,
				ExpectedTPR: e.ExpectedTPR,
				ExpectedFPR: e.ExpectedFPR,
			}
		}
	})
	if loadErr != nil {
		return nil, loadErr
	}
	out := make([]vab.Calibration, len(loaded))
	copy(out, loaded)
	return out, nil
}

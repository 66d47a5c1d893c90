package detectoradapters

import (
	"time"

	"github.com/vabforge/vab-orchestrator/internal/provenance"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

// toolVersion is fixed per adapter build; a real model-backed adapter would
// report its checkpoint's actual version string here instead.
const toolVersion = "1.0.0"

func newProvenance(tool, ckpt string, params map[string]any) vab.Provenance {
	return vab.Provenance{
		Tool:           tool,
		Version:        toolVersion,
		ModelCkptID:    ckpt,
		ParamsFingerpr: provenance.Fingerprint(params),
		Timestamp:      time.Now(),
	}
}

func skippedProvenance(tool string, reason string) vab.Provenance {
	return vab.Provenance{
		Tool:          tool,
		Version:       toolVersion,
		SkippedReason: reason,
		Timestamp:     time.Now(),
	}
}

// Package provenance computes stable, content-addressed fingerprints for
// detector invocations and dedupes them by (tool, version, params_fingerprint)
// in first-appearance order, as required for the bundle's top-level
// provenance list.
package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/vabforge/vab-orchestrator/internal/vab"
)

// Fingerprint returns a stable hex-encoded SHA-256 hash of params. Map keys
// are sorted and the value is re-marshaled through a canonical encoder so
// that equivalent params always hash identically regardless of insertion
// order or field ordering upstream.
func Fingerprint(params map[string]any) string {
	canonical := canonicalize(params)
	h := sha256.New()
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalize produces deterministic JSON bytes: keys sorted at every
// level, so the same logical params always serialize identically.
func canonicalize(v any) []byte {
	normalized := normalize(v)
	b, err := json.Marshal(normalized)
	if err != nil {
		// params are always built internally from primitive types; a
		// marshal failure here indicates a programming error upstream.
		return []byte(`"fingerprint_error"`)
	}
	return b
}

func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]keyValue, 0, len(keys))
		for _, k := range keys {
			out = append(out, keyValue{Key: k, Value: normalize(val[k])})
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return val
	}
}

type keyValue struct {
	Key   string `json:"k"`
	Value any    `json:"v"`
}

// Ledger accumulates provenance entries, deduping by (tool, version,
// params_fingerprint) and preserving first-appearance insertion order.
type Ledger struct {
	seen    map[string]struct{}
	entries []vab.Provenance
}

// NewLedger returns an empty provenance ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Add records p if its (tool, version, params_fingerprint) key has not
// already been seen; later duplicates are silently dropped.
func (l *Ledger) Add(p vab.Provenance) {
	key := p.Tool + "\x00" + p.Version + "\x00" + p.ParamsFingerpr
	if _, ok := l.seen[key]; ok {
		return
	}
	l.seen[key] = struct{}{}
	l.entries = append(l.entries, p)
}

// Entries returns the deduped provenance list in insertion order.
func (l *Ledger) Entries() []vab.Provenance {
	return l.entries
}

// Package api provides the HTTP boundary in front of the job manager: the
// five stable routes from spec.md §6 (analyze/ingest/status/result/health),
// implemented as a thin Echo adapter with no orchestration logic of its own.
package api

import "time"

// Default timeouts for the HTTP server, mirroring the teacher's constants.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the HTTP server's own settings, separate from conf.Settings
// so the server can be constructed directly in tests without a full
// configuration load.
type Config struct {
	Listen        string
	MaxVideoMB    int64
	MimeWhitelist []string
}

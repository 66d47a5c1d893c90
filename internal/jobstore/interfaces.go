package jobstore

import (
	"context"
	"errors"

	"github.com/vabforge/vab-orchestrator/internal/vab"
)

// ErrNotFound is returned by Get when no row exists for a video_id.
var ErrNotFound = errors.New("jobstore: job not found")

// Store abstracts the durable job table so the job manager can be tested
// against an in-memory double instead of a file-backed SQLite database.
type Store interface {
	Open() error
	Close() error

	// Create inserts a new job row. Returns an error if video_id already
	// exists; the job manager's idempotence check happens one layer up via
	// Get, not here.
	Create(ctx context.Context, job *vab.Job) error

	// Get returns the current row for video_id, or ErrNotFound.
	Get(ctx context.Context, videoID string) (vab.Job, error)

	// UpdateProgress sets progress/message for a running job.
	UpdateProgress(ctx context.Context, videoID string, progress int, message string) error

	// UpdateState transitions a job's state. For JobCompleted/JobFailed it
	// also stamps FinishedAt.
	UpdateState(ctx context.Context, videoID string, state vab.JobState, message string) error

	// SaveLadderState persists the job's fallback ladder snapshot as
	// status-reporting metadata (JSON-encoded by the caller).
	SaveLadderState(ctx context.Context, videoID string, ladderStateJSON string) error

	// SaveBundlePath records where a completed job's bundle was written.
	SaveBundlePath(ctx context.Context, videoID string, path string) error

	// BundlePath returns the bundle path recorded for videoID, or
	// ErrNotFound if the row doesn't exist (an empty string if no bundle
	// has been saved yet).
	BundlePath(ctx context.Context, videoID string) (string, error)

	// ReplayNonTerminal returns every job not in JobCompleted/JobFailed, for
	// the job manager to re-enqueue on startup (spec §4.7).
	ReplayNonTerminal(ctx context.Context) ([]vab.Job, error)

	// Ping reports whether the durable store connection is alive, for the
	// HTTP boundary's /health check.
	Ping(ctx context.Context) error
}

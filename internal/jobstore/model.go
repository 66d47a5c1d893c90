// Package jobstore is the durable job table backing the job manager: one
// row per video_id carrying the vab.Job fields plus the fallback ladder's
// serialized state and the bundle's on-disk path, so a process restart can
// replay any non-terminal job back to queued (spec §4.7).
package jobstore

import (
	"time"

	"github.com/vabforge/vab-orchestrator/internal/vab"
)

// Record is the GORM-mapped row for one job. VideoID is the primary key;
// every other job attribute is denormalized onto this single row since the
// job manager never needs to join across jobs.
type Record struct {
	VideoID    string `gorm:"primaryKey;column:video_id"`
	MediaURL   string
	SourcePath string
	State      string `gorm:"index"`
	Progress   int
	Message    string

	// Ablations, flattened so no nested table is needed for three bools.
	AblationNoSR       bool
	AblationNoTiling   bool
	AblationLightAudio bool

	// LadderState is the JSON-encoded fallback.Snapshot at the last update,
	// used only for status reporting; the ladder itself is never resumed
	// mid-job after a restart (spec §4.3: ladder state is job-scoped and a
	// restarted job starts its ladder fresh).
	LadderState string

	// BundlePath is the on-disk location of the persisted vab.json, set
	// once the job reaches JobCompleted.
	BundlePath string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

// TableName pins the table name so it doesn't change with struct renames.
func (Record) TableName() string { return "jobs" }

// ToJob projects a Record onto the vab.Job shape the API and job manager
// operate on.
func (r Record) ToJob() vab.Job {
	return vab.Job{
		VideoID:    r.VideoID,
		MediaURL:   r.MediaURL,
		SourcePath: r.SourcePath,
		Ablations: vab.Ablations{
			NoSR:       r.AblationNoSR,
			NoTiling:   r.AblationNoTiling,
			LightAudio: r.AblationLightAudio,
		},
		State:      vab.JobState(r.State),
		Progress:   r.Progress,
		Message:    r.Message,
		CreatedAt:  r.CreatedAt,
		FinishedAt: r.FinishedAt,
	}
}

// recordFromJob builds the row to insert for a newly created job.
func recordFromJob(job *vab.Job) Record {
	return Record{
		VideoID:            job.VideoID,
		MediaURL:           job.MediaURL,
		SourcePath:         job.SourcePath,
		State:               string(job.State),
		Progress:            job.Progress,
		Message:             job.Message,
		AblationNoSR:        job.Ablations.NoSR,
		AblationNoTiling:    job.Ablations.NoTiling,
		AblationLightAudio:  job.Ablations.LightAudio,
		CreatedAt:           job.CreatedAt,
	}
}

package jobstore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vabforge/vab-orchestrator/internal/logging"
	"github.com/vabforge/vab-orchestrator/internal/vab"
	"github.com/vabforge/vab-orchestrator/internal/verrors"
)

// SQLiteStore implements Store over a local SQLite database, grounded on the
// teacher's internal/datastore SQLiteStore: WAL journal mode, a GORM
// logger routed through this package's slog logger, and AutoMigrate at
// Open time rather than a separate migration step.
type SQLiteStore struct {
	Path   string
	DB     *gorm.DB
	log    *slog.Logger
}

// NewSQLiteStore returns a store backed by the database file at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{Path: path, log: logging.ForComponent("jobstore")}
}

func (s *SQLiteStore) Open() error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return verrors.Newf("jobstore: create store directory: %w", err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}

	db, err := gorm.Open(sqlite.Open(s.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return verrors.Newf("jobstore: open sqlite database %s: %w", s.Path, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return verrors.Newf("jobstore: underlying sql.DB: %w", err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			s.log.Warn("failed to set pragma", "pragma", p, "error", err)
		}
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return verrors.Newf("jobstore: automigrate: %w", err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}

	s.DB = db
	s.log.Info("job store opened", "path", s.Path)
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping reports whether the underlying database connection is alive, for the
// HTTP boundary's /health check.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s.DB == nil {
		return verrors.Newf("jobstore: not opened").
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Create(ctx context.Context, job *vab.Job) error {
	rec := recordFromJob(job)
	if err := s.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return verrors.Newf("jobstore: create job %s: %w", job.VideoID, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, videoID string) (vab.Job, error) {
	var rec Record
	err := s.DB.WithContext(ctx).Where("video_id = ?", videoID).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return vab.Job{}, ErrNotFound
		}
		return vab.Job{}, verrors.Newf("jobstore: get job %s: %w", videoID, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	return rec.ToJob(), nil
}

func (s *SQLiteStore) UpdateProgress(ctx context.Context, videoID string, progress int, message string) error {
	res := s.DB.WithContext(ctx).Model(&Record{}).Where("video_id = ?", videoID).
		Updates(map[string]any{"progress": progress, "message": message, "updated_at": time.Now()})
	return wrapUpdateErr(res, videoID)
}

func (s *SQLiteStore) UpdateState(ctx context.Context, videoID string, state vab.JobState, message string) error {
	updates := map[string]any{"state": string(state), "message": message, "updated_at": time.Now()}
	if state == vab.JobCompleted || state == vab.JobFailed {
		now := time.Now()
		updates["finished_at"] = &now
	}
	res := s.DB.WithContext(ctx).Model(&Record{}).Where("video_id = ?", videoID).Updates(updates)
	return wrapUpdateErr(res, videoID)
}

func (s *SQLiteStore) SaveLadderState(ctx context.Context, videoID string, ladderStateJSON string) error {
	res := s.DB.WithContext(ctx).Model(&Record{}).Where("video_id = ?", videoID).
		Updates(map[string]any{"ladder_state": ladderStateJSON, "updated_at": time.Now()})
	return wrapUpdateErr(res, videoID)
}

func (s *SQLiteStore) SaveBundlePath(ctx context.Context, videoID string, path string) error {
	res := s.DB.WithContext(ctx).Model(&Record{}).Where("video_id = ?", videoID).
		Updates(map[string]any{"bundle_path": path, "updated_at": time.Now()})
	return wrapUpdateErr(res, videoID)
}

func (s *SQLiteStore) BundlePath(ctx context.Context, videoID string) (string, error) {
	var rec Record
	err := s.DB.WithContext(ctx).Select("bundle_path").Where("video_id = ?", videoID).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrNotFound
		}
		return "", verrors.Newf("jobstore: bundle path for %s: %w", videoID, err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	return rec.BundlePath, nil
}

func (s *SQLiteStore) ReplayNonTerminal(ctx context.Context) ([]vab.Job, error) {
	var recs []Record
	err := s.DB.WithContext(ctx).
		Where("state NOT IN ?", []string{string(vab.JobCompleted), string(vab.JobFailed)}).
		Find(&recs).Error
	if err != nil {
		return nil, verrors.Newf("jobstore: replay non-terminal jobs: %w", err).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	jobs := make([]vab.Job, len(recs))
	for i, r := range recs {
		jobs[i] = r.ToJob()
	}
	return jobs, nil
}

func wrapUpdateErr(res *gorm.DB, videoID string) error {
	if res.Error != nil {
		return verrors.Newf("jobstore: update job %s: %w", videoID, res.Error).
			Category(verrors.CategoryJobStore).
			Component("jobstore").
			Build()
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

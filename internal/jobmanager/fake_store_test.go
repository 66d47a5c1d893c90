package jobmanager

import (
	"context"
	"errors"
	"sync"

	"github.com/vabforge/vab-orchestrator/internal/jobstore"
	"github.com/vabforge/vab-orchestrator/internal/vab"
)

var errAlreadyExists = errors.New("fakeStore: job already exists")

// fakeStore is an in-memory jobstore.Store double, used so jobmanager's
// tests don't need a real SQLite file for every case.
type fakeStore struct {
	mu   sync.Mutex
	rows map[string]*vab.Job
	bundlePaths map[string]string
	ladderStates map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:         make(map[string]*vab.Job),
		bundlePaths:  make(map[string]string),
		ladderStates: make(map[string]string),
	}
}

func (f *fakeStore) Open() error              { return nil }
func (f *fakeStore) Close() error             { return nil }
func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) Create(ctx context.Context, job *vab.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[job.VideoID]; ok {
		return errAlreadyExists
	}
	cp := *job
	f.rows[job.VideoID] = &cp
	return nil
}

func (f *fakeStore) Get(ctx context.Context, videoID string) (vab.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[videoID]
	if !ok {
		return vab.Job{}, jobstore.ErrNotFound
	}
	return *row, nil
}

func (f *fakeStore) UpdateProgress(ctx context.Context, videoID string, progress int, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[videoID]
	if !ok {
		return jobstore.ErrNotFound
	}
	row.Progress = progress
	row.Message = message
	return nil
}

func (f *fakeStore) UpdateState(ctx context.Context, videoID string, state vab.JobState, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[videoID]
	if !ok {
		return jobstore.ErrNotFound
	}
	row.State = state
	row.Message = message
	return nil
}

func (f *fakeStore) SaveLadderState(ctx context.Context, videoID string, ladderStateJSON string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ladderStates[videoID] = ladderStateJSON
	return nil
}

func (f *fakeStore) SaveBundlePath(ctx context.Context, videoID string, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundlePaths[videoID] = path
	return nil
}

func (f *fakeStore) BundlePath(ctx context.Context, videoID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bundlePaths[videoID], nil
}

func (f *fakeStore) ReplayNonTerminal(ctx context.Context) ([]vab.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []vab.Job
	for _, row := range f.rows {
		if row.State != vab.JobCompleted && row.State != vab.JobFailed {
			out = append(out, *row)
		}
	}
	return out, nil
}

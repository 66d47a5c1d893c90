package detectoradapters

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ModelCache is a process-wide, read-mostly cache of lazily-loaded model
// handles backed by patrickmn/go-cache (same library the teacher uses for
// its ebird client and image-provider caches), satisfying detector.ModelCache.
type ModelCache struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewModelCache returns a cache with no expiry — model handles live for the
// lifetime of the process, not a single job.
func NewModelCache() *ModelCache {
	return &ModelCache{c: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

// Get returns the cached value for key, invoking load exactly once per key
// across the process if absent.
func (m *ModelCache) Get(key string, load func() (any, error)) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	m.c.Set(key, v, gocache.NoExpiration)
	return v, nil
}

package cache

import "time"

// Cache defines a generic cache interface. Freshness is a property of the
// read: callers state how stale an entry they will accept.
type Cache[T any] interface {
	// Get retrieves a value no older than maxAge
	Get(key string, maxAge time.Duration) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Invalidate removes a key from the cache
	Invalidate(key string)

	// Size returns the current number of items in the cache
	Size() int

	// Stats returns cumulative hit and miss counts
	Stats() Stats
}

// Stats carries a cache's cumulative hit and miss counts. A stale entry
// rejected by the reader's maxAge counts as a miss.
type Stats struct {
	Hits   int64
	Misses int64
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		caches:      make([]Cleaner, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, cache := range m.caches {
				cache.CleanExpired()
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	if m.stopCleanup != nil {
		close(m.stopCleanup)
		<-m.cleanupDone
	}
}

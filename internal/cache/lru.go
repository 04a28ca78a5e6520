package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU cache with size-based eviction. Entries carry their write time;
// freshness is decided by the reader, so the same entry can serve callers
// with different staleness tolerances.
type LRUCache[T any] struct {
	mu        sync.Mutex
	maxSize   int
	retention time.Duration
	items     map[string]*list.Element
	lru       *list.List
	hits      int64
	misses    int64
}

type cacheItem[T any] struct {
	key      string
	data     T
	storedAt time.Time
}

// NewLRUCache creates a new LRU cache. Entries older than retention are
// purged by CleanExpired regardless of reader tolerance.
func NewLRUCache[T any](maxSize int, retention time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxSize:   maxSize,
		retention: retention,
		items:     make(map[string]*list.Element),
		lru:       list.New(),
	}
}

// Get retrieves a value no older than maxAge. A non-positive maxAge accepts
// any retained entry.
func (c *LRUCache[T]) Get(key string, maxAge time.Duration) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		c.misses++
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])

	if maxAge > 0 && time.Since(item.storedAt) > maxAge {
		c.misses++
		return zero, false
	}

	// Move to front (most recently used)
	c.lru.MoveToFront(elem)
	c.hits++
	return item.data, true
}

// Set stores a value in the cache, refreshing its write time.
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:      key,
		data:     data,
		storedAt: time.Now(),
	}

	// Check if key already exists
	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	// Add new item
	elem := c.lru.PushFront(item)
	c.items[key] = elem

	// Evict if over capacity
	if c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		if oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Invalidate removes a key from the cache
func (c *LRUCache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes entries past the retention window and returns count
// of removed items
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element

	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*cacheItem[T])
		if now.Sub(item.storedAt) > c.retention {
			toRemove = append(toRemove, elem)
		}
	}

	for _, elem := range toRemove {
		c.removeElement(elem)
	}

	return len(toRemove)
}

// Size returns the current number of items in the cache
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns cumulative hit and miss counts
func (c *LRUCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses}
}

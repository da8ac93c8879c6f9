package rag

import "sync"

// Entry is one cached (index, chunks) pair. Chunk order is stable and index
// row i corresponds exactly to Chunks[i]. Entries are read-only after
// creation.
type Entry struct {
	Index  *Index
	Chunks []string
}

// Key builds the cache key for a (conversation, document) pair. Keying per
// conversation keeps one conversation's vectors from leaking into another's.
func Key(conversationID, documentURL string) string {
	return conversationID + ":" + documentURL
}

// Cache is the process-wide document cache. It may be hit by overlapping
// tool calls; two concurrent misses for the same key both compute and the
// second write wins, which is an accepted inefficiency since both
// computations are equivalent.
//
// Capacity bounds growth over a long-running process: when positive, the
// oldest inserted entry is evicted once the capacity is exceeded. Zero means
// unbounded, matching the historical behavior.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	order    []string
	capacity int
}

// NewCache creates a cache. capacity <= 0 means unbounded.
func NewCache(capacity int) *Cache {
	return &Cache{
		entries:  make(map[string]*Entry),
		capacity: capacity,
	}
}

// Get returns the entry for key, if present.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Set stores an entry under key, last writer wins. Inserting beyond capacity
// evicts the oldest entry.
func (c *Cache) Set(key string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = entry

	for c.capacity > 0 && len(c.entries) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

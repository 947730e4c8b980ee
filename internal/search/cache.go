package search

import "sync"

// Cache maps canonical state keys to minimax scores. Entries are never
// evicted; the score of a key does not depend on the path that reached it.
type Cache struct {
    mu     sync.Mutex
    scores map[string]int
    hits   uint64
    misses uint64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
    return &Cache{scores: make(map[string]int)}
}

// Load returns the cached score for key.
func (c *Cache) Load(key string) (int, bool) {
    c.mu.Lock()
    defer c.mu.Unlock()
    s, ok := c.scores[key]
    if ok {
        c.hits++
    } else {
        c.misses++
    }
    return s, ok
}

// Store records the score for key.
func (c *Cache) Store(key string, score int) {
    c.mu.Lock()
    c.scores[key] = score
    c.mu.Unlock()
}

// Len returns the number of cached states.
func (c *Cache) Len() int {
    c.mu.Lock()
    defer c.mu.Unlock()
    return len(c.scores)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.hits, c.misses
}

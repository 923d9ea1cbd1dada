package news

import "sync"

// Cache holds the latest fetched summaries for consumers that need
// news context without fetching inline, like the policy gate on the
// trade-entry path.
type Cache struct {
	mu        sync.RWMutex
	summaries []string
}

// Set replaces the cached summaries.
func (c *Cache) Set(summaries []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries = append([]string(nil), summaries...)
}

// Latest returns the cached summaries.
func (c *Cache) Latest() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.summaries...)
}

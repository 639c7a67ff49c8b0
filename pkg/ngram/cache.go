package ngram

import "sync"

// queryCache keeps recent prediction results keyed by the full query.
// Editors re-ask the same question on nearly every keystroke, so even a
// small cache absorbs most of the SQL traffic. The store never changes
// after Open, which means entries stay valid for its whole lifetime and
// eviction is purely LRU.
type queryCache struct {
	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
	cap     int
	tick    int64
	hits    int
	misses  int
}

type cacheKey struct {
	prev2  string
	prev1  string
	prefix string
	limit  int
}

type cacheEntry struct {
	results  []Suggestion
	lastUsed int64
}

func newQueryCache(capacity int) *queryCache {
	return &queryCache{
		entries: make(map[cacheKey]*cacheEntry, capacity),
		cap:     capacity,
	}
}

// get returns a copy of the cached results so callers can trim or
// reorder without corrupting the cache. Empty results are cached too;
// they come back as nil, matching an uncached empty answer.
func (c *queryCache) get(key cacheKey) ([]Suggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.tick++
	entry.lastUsed = c.tick
	if len(entry.results) == 0 {
		return nil, true
	}
	out := make([]Suggestion, len(entry.results))
	copy(out, entry.results)
	return out, true
}

func (c *queryCache) put(key cacheKey, results []Suggestion) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.cap {
		c.evictLRU()
	}
	stored := make([]Suggestion, len(results))
	copy(stored, results)
	c.tick++
	c.entries[key] = &cacheEntry{results: stored, lastUsed: c.tick}
}

// evictLRU drops the least recently used entry. A linear scan is fine at
// the sizes this cache runs at.
func (c *queryCache) evictLRU() {
	var (
		oldest cacheKey
		when   int64
		found  bool
	)
	for key, entry := range c.entries {
		if !found || entry.lastUsed < when {
			oldest = key
			when = entry.lastUsed
			found = true
		}
	}
	if found {
		delete(c.entries, oldest)
	}
}

func (c *queryCache) stats() (hits, misses, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}

package resolve

// Cache is the run-scoped resolution cache: normalized lookup key to record
// id, with "" recording a negative result. It is created per execute or
// validate call and thrown away with it, never shared across runs, so two
// concurrent jobs cannot observe each other's lookups.
type Cache struct {
	entries map[string]string
}

// NewCache returns an empty run cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Get returns the cached record id for key. ok distinguishes "never looked
// up" from a cached negative result ("", true).
func (c *Cache) Get(key string) (string, bool) {
	id, ok := c.entries[key]
	return id, ok
}

// Put records a lookup result; id may be empty for a negative result.
func (c *Cache) Put(key, id string) {
	c.entries[key] = id
}

// Len reports the number of cached lookups, for tests and run stats.
func (c *Cache) Len() int {
	return len(c.entries)
}

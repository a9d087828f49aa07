package repositories

import (
	"sync"
)

// IDCache memoizes name-to-id lookups (container ids, known record
// ids) so repeated operations skip a round trip. Construct one per
// process and inject it; Clear exists for tests.
type IDCache struct {
	mu  sync.Mutex
	ids map[string]string
}

func NewIDCache() *IDCache {
	return &IDCache{ids: make(map[string]string)}
}

func (c *IDCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[key]
	return id, ok
}

func (c *IDCache) Set(key, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[key] = id
}

func (c *IDCache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, key)
}

func (c *IDCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]string)
}

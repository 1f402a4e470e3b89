package serdes

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// identityCache holds at most one instance per primary key. With a limit of
// zero it never evicts on its own; otherwise the least recently used entry goes.
type identityCache[K comparable, T any] struct {
	mu      sync.RWMutex
	entries map[K]*T
	bounded *lru.Cache[K, *T]
}

func newIdentityCache[K comparable, T any](limit int) *identityCache[K, T] {
	c := &identityCache[K, T]{}
	if limit > 0 {
		// lru.New only fails for a non-positive size
		c.bounded, _ = lru.New[K, *T](limit)
		return c
	}
	c.entries = make(map[K]*T)
	return c
}

func (c *identityCache[K, T]) get(k K) (*T, bool) {
	if c.bounded != nil {
		return c.bounded.Get(k)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[k]
	return e, ok
}

func (c *identityCache[K, T]) put(k K, e *T) {
	if c.bounded != nil {
		c.bounded.Add(k, e)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = e
}

// putIfAbsent stores e unless an instance for k is already cached and returns the cached one.
func (c *identityCache[K, T]) putIfAbsent(k K, e *T) *T {
	if c.bounded != nil {
		if prev, ok, _ := c.bounded.PeekOrAdd(k, e); ok {
			return prev
		}
		return e
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[k]; ok {
		return prev
	}
	c.entries[k] = e
	return e
}

func (c *identityCache[K, T]) remove(k K) {
	if c.bounded != nil {
		c.bounded.Remove(k)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, k)
}

func (c *identityCache[K, T]) purge() {
	if c.bounded != nil {
		c.bounded.Purge()
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *identityCache[K, T]) len() int {
	if c.bounded != nil {
		return c.bounded.Len()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *identityCache[K, T]) values() []*T {
	if c.bounded != nil {
		return c.bounded.Values()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*T, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	return out
}

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type entry struct {
	key     string
	value   []byte
	expires time.Time
	element *list.Element
}

// memoryStore is an LRU store with per-entry TTL. It backs the caches in
// tests and single-process deployments; Redis serves shared deployments.
type memoryStore struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*entry
	order    *list.List
	now      func() time.Time
}

// NewMemory creates an in-memory LRU store with the given capacity.
func NewMemory(capacity int) Store {
	if capacity <= 0 {
		capacity = 512
	}
	return &memoryStore{
		capacity: capacity,
		items:    make(map[string]*entry, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		if ent.expires.IsZero() || c.now().Before(ent.expires) {
			c.order.MoveToFront(ent.element)
			return ent.value, nil
		}
		c.removeEntry(ent)
	}
	return nil, ErrMiss
}

func (c *memoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		if ent.expires.IsZero() || c.now().Before(ent.expires) {
			return false, nil
		}
		c.removeEntry(ent)
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	elem := c.order.PushFront(key)
	c.items[key] = &entry{
		key:     key,
		value:   value,
		expires: c.computeExpiry(ttl),
		element: elem,
	}
	return true, nil
}

func (c *memoryStore) computeExpiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *memoryStore) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	key := elem.Value.(string)
	if ent, ok := c.items[key]; ok {
		c.removeEntry(ent)
	}
}

func (c *memoryStore) removeEntry(ent *entry) {
	if ent.element != nil {
		c.order.Remove(ent.element)
	}
	delete(c.items, ent.key)
}

// Package dedup gates inbound change notifications so a message id is
// processed at most once within the expiry window. Redelivery after the
// window has passed is treated as a new event.
package dedup

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache reports whether an id was already seen, inserting it when not.
// Check and insert happen atomically.
type Cache interface {
	Seen(ctx context.Context, id string) (bool, error)
}

type memoryEntry struct {
	id      string
	expires time.Time
}

// MemoryCache is a bounded, insertion-ordered set with per-entry expiry.
// When full, the oldest entry is evicted.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	index    map[string]*list.Element
	now      func() time.Time
}

// NewMemoryCache creates a cache holding at most capacity ids for ttl each.
func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
}

// Seen implements Cache.
func (c *MemoryCache) Seen(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.evictExpired(now)

	if el, ok := c.index[id]; ok {
		if now.Before(el.Value.(*memoryEntry).expires) {
			return true, nil
		}
		c.remove(el)
	}

	for c.order.Len() >= c.capacity {
		c.remove(c.order.Front())
	}
	c.index[id] = c.order.PushBack(&memoryEntry{id: id, expires: now.Add(c.ttl)})
	return false, nil
}

// Len returns the number of tracked ids.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Entries are appended in insertion order with a fixed ttl, so expiry order
// matches list order.
func (c *MemoryCache) evictExpired(now time.Time) {
	for el := c.order.Front(); el != nil; el = c.order.Front() {
		if now.Before(el.Value.(*memoryEntry).expires) {
			return
		}
		c.remove(el)
	}
}

func (c *MemoryCache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.index, el.Value.(*memoryEntry).id)
}

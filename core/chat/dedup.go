package chat

import "container/list"

// DefaultDedupCapacity bounds a session dedup cache when no explicit
// capacity is configured.
const DefaultDedupCapacity = 1000

// DedupCache is a fixed-capacity LRU set of processed message keys.
// Once capacity is reached the oldest key is evicted; keys still in the
// cache are never re-admitted for rendering. Not safe for concurrent
// use; the owning Session serializes access.
type DedupCache struct {
	capacity int
	order    *list.List               // front = most recent
	index    map[string]*list.Element // key -> element holding the key
}

func NewDedupCache(capacity int) *DedupCache {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &DedupCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Seen inserts the key and reports whether it was already present.
func (c *DedupCache) Seen(key string) bool {
	if el, ok := c.index[key]; ok {
		c.order.MoveToFront(el)
		return true
	}
	c.index[key] = c.order.PushFront(key)
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(string))
	}
	return false
}

func (c *DedupCache) Len() int {
	return c.order.Len()
}

// Reset clears all keys; called whenever the active conversation changes.
func (c *DedupCache) Reset() {
	c.order.Init()
	c.index = make(map[string]*list.Element, c.capacity)
}

package sim

import "container/list"

// lruCache is a small fixed-capacity least-recently-used cache keyed by a
// comparable key type. It backs the travel-time oracle's hot-loop
// accelerator (spec §4.1): correctness never depends on it, only speed, so
// it intentionally has no eviction callbacks or metrics beyond a hit/miss
// counter, exposed through the oracle's CacheHitRate.
//
// No suitable third-party LRU implementation appears anywhere in the
// corpus (see DESIGN.md); a cache this small is idiomatically hand-rolled
// on top of container/list, the same standard-library building block the
// teacher corpus reaches for when it needs an ordered auxiliary structure
// (see sim/queue.go's WaitQueue in the teacher, built on a plain slice).
type lruCache struct {
	capacity int
	items    map[lruKey]*list.Element
	order    *list.List // front = most recently used
	hits     int64
	misses   int64
}

type lruKey struct {
	origin StationID
	dest   StationID
	atTime float64
}

type lruEntry struct {
	key   lruKey
	value float64
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		items:    make(map[lruKey]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *lruCache) get(key lruKey) (float64, bool) {
	if c == nil || c.capacity <= 0 {
		return 0, false
	}
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return 0, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (c *lruCache) put(key lruKey, value float64) {
	if c == nil || c.capacity <= 0 {
		return
	}
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).value = value
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}
}

// HitRate returns hits/(hits+misses), or 0 if the cache has never been
// queried. Exposed for tests and diagnostics only.
func (c *lruCache) HitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

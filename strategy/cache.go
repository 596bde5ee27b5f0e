package strategy

import (
	"container/list"
	"fmt"
	"sync"
)

// cacheKey identifies a cached candidate set by query text and requested k,
// per spec.md §4.5 step 5 ("the cache key includes both query and k").
func cacheKey(query string, k int) string {
	return fmt.Sprintf("%s\x00%d", query, k)
}

// lruCache is a bounded, in-process cache of query candidate sets. Grounded
// on the teacher's llm/cache.LRUCache doubly-linked-list design, trimmed to
// the fields this package needs (no TTL: candidate sets don't go stale
// within a process lifetime the way provider responses do).
type lruCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

type lruEntry struct {
	key        string
	candidates []scoredDoc
}

func newLRUCache(capacity int) *lruCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &lruCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *lruCache) get(key string) ([]scoredDoc, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).candidates, true
}

func (c *lruCache) set(key string, candidates []scoredDoc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).candidates = candidates
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		tail := c.order.Back()
		if tail != nil {
			c.order.Remove(tail)
			delete(c.items, tail.Value.(*lruEntry).key)
		}
	}

	el := c.order.PushFront(&lruEntry{key: key, candidates: candidates})
	c.items[key] = el
}

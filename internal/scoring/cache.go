package scoring

import (
	"container/list"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

const defaultCacheSize = 1000

type cacheKey struct {
	resume string
	job    string
}

// flight builds an unambiguous singleflight key for the ordered pair.
func (k cacheKey) flight() string {
	return strconv.Itoa(len(k.resume)) + ":" + k.resume + k.job
}

type cacheEntry struct {
	key    cacheKey
	bundle *Bundle
}

// resultCache is a bounded LRU of bundles keyed by the exact (resume, job) pair.
// Concurrent misses for the same pair share one computation.
type resultCache struct {
	mu       sync.Mutex
	capacity int
	items    map[cacheKey]*list.Element
	order    *list.List

	group singleflight.Group
}

func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		capacity = defaultCacheSize
	}
	return &resultCache{
		capacity: capacity,
		items:    make(map[cacheKey]*list.Element),
		order:    list.New(),
	}
}

func (c *resultCache) get(key cacheKey) (*Bundle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).bundle, true
}

func (c *resultCache) add(key cacheKey, bundle *Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*cacheEntry).bundle = bundle
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&cacheEntry{key: key, bundle: bundle})

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

type flightResult struct {
	bundle *Bundle
	keep   bool
}

// getOrCompute returns the cached bundle for key, or runs compute once for all
// concurrent callers. The result is stored unless compute reports it must not
// be kept. A caller that joined a computation whose result was discarded runs
// its own compute instead of inheriting another caller's failure. The bool
// reports a cache hit.
func (c *resultCache) getOrCompute(key cacheKey, compute func() (*Bundle, bool)) (*Bundle, bool) {
	if bundle, ok := c.get(key); ok {
		return bundle, true
	}

	for {
		ran := false
		v, _, _ := c.group.Do(key.flight(), func() (any, error) {
			if bundle, ok := c.get(key); ok {
				return flightResult{bundle: bundle, keep: true}, nil
			}
			ran = true
			bundle, keep := compute()
			if keep {
				c.add(key, bundle)
			}
			return flightResult{bundle: bundle, keep: keep}, nil
		})

		res := v.(flightResult)
		if res.keep || ran {
			return res.bundle, false
		}
	}
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[cacheKey]*list.Element)
	c.order.Init()
}

func (c *resultCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

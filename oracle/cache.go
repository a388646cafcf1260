package oracle

import (
	"sync"
	"sync/atomic"
)

// splitCache memoizes cut lists keyed by the exact input string. It holds at
// most max entries; once full it degrades to lock-free read-only lookups so
// that steady-state encoding never contends.
type splitCache struct {
	m    sync.Map
	size atomic.Int64
	max  int64
}

type cacheEntry struct {
	cuts []int
}

func newSplitCache(max int) *splitCache {
	if max < 0 {
		max = 0
	}
	return &splitCache{max: int64(max)}
}

func (c *splitCache) get(key string) ([]int, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*cacheEntry).cuts, true
}

func (c *splitCache) put(key string, cuts []int) {
	// Reserve a slot before storing so that concurrent puts cannot push the
	// entry count past max.
	for {
		n := c.size.Load()
		if n >= c.max {
			return
		}
		if c.size.CompareAndSwap(n, n+1) {
			break
		}
	}
	if _, loaded := c.m.LoadOrStore(key, &cacheEntry{cuts: cuts}); loaded {
		c.size.Add(-1)
	}
}

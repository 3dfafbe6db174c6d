package cache

import (
	"container/list"
	"sync"
	"time"
)

// Stats is a point-in-time view of an LRU's counters.
type Stats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
	Expired   int64
}

type entry struct {
	key       string
	value     string
	expiresAt time.Time
}

// LRU holds raw KV values, bounded by entry count and age.
type LRU struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	index    map[string]*list.Element
	order    *list.List // front is most recently used

	hits, misses, evictions, expired int64
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		index:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *LRU) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.misses++
		return "", false
	}
	e := el.Value.(*entry)
	if !c.now().Before(e.expiresAt) {
		c.drop(el)
		c.expired++
		c.misses++
		return "", false
	}
	c.order.MoveToFront(el)
	c.hits++
	return e.value, true
}

func (c *LRU) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry)
		e.value, e.expiresAt = value, expiresAt
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
		c.evictions++
	}
}

// Forget removes keys; absent keys are ignored.
func (c *LRU) Forget(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if el, ok := c.index[k]; ok {
			c.drop(el)
		}
	}
}

func (c *LRU) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.index)
	c.order.Init()
}

// Sweep drops every expired entry and reports how many went.
func (c *LRU) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*entry).expiresAt) {
			c.drop(el)
			n++
		}
		el = prev
	}
	c.expired += int64(n)
	return n
}

func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.index),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
	}
}

func (c *LRU) drop(el *list.Element) {
	delete(c.index, el.Value.(*entry).key)
	c.order.Remove(el)
}

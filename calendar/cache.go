package calendar

import (
	"container/list"
	"sync"
)

// DefaultCacheSize is how many (country, year) holiday sets stay resident.
const DefaultCacheSize = 64

type cacheKey struct {
	country Country
	year    int
}

type yearHolidays struct {
	list []Holiday
	set  map[Date]struct{}
}

type cacheItem struct {
	key  cacheKey
	data *yearHolidays
}

// holidayCache is a bounded LRU of computed holiday years. Entries never
// go stale: the value is a pure function of the key.
type holidayCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[cacheKey]*list.Element
	lru     *list.List
}

func newHolidayCache(maxSize int) *holidayCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &holidayCache{
		maxSize: maxSize,
		items:   make(map[cacheKey]*list.Element),
		lru:     list.New(),
	}
}

func (c *holidayCache) get(key cacheKey) (*yearHolidays, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheItem).data, true
}

func (c *holidayCache) set(key cacheKey, data *yearHolidays) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value = &cacheItem{key: key, data: data}
		c.lru.MoveToFront(elem)
		return
	}

	c.items[key] = c.lru.PushFront(&cacheItem{key: key, data: data})
	if c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		delete(c.items, oldest.Value.(*cacheItem).key)
		c.lru.Remove(oldest)
	}
}

func (c *holidayCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

package pricing

import (
	"sync"
	"time"
)

// TableCache caches rule tables per region
type TableCache struct {
	data  map[string]*cacheEntry
	ttl   time.Duration
	mutex sync.RWMutex
	now   func() time.Time
}

type cacheEntry struct {
	table     *RuleTable
	expiresAt time.Time
}

func NewTableCache(ttl time.Duration) *TableCache {
	return &TableCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (c *TableCache) Get(region string) *RuleTable {
	c.mutex.RLock()
	entry, exists := c.data[region]
	c.mutex.RUnlock()
	if !exists {
		return nil
	}

	if c.now().After(entry.expiresAt) {
		c.mutex.Lock()
		delete(c.data, region)
		c.mutex.Unlock()
		return nil
	}

	return entry.table
}

func (c *TableCache) Set(region string, table *RuleTable) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[region] = &cacheEntry{
		table:     table,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *TableCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*cacheEntry)
}

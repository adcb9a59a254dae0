package sparsedb

import (
	"container/list"
	"sync"
)

// paramCacheCap bounds the number of distinct setups' PublicParameters kept
// resident at once (spec §5 "shared-resource RWMutex policy + LRU(250)").
const paramCacheCap = 250

type paramEntry struct {
	uuid  string
	value any
}

// ParamCache is a UUID-keyed, capacity-bounded, least-recently-used cache of
// per-setup public parameters, guarding every access with an RWMutex so
// concurrent query-processing goroutines never race a cache eviction (spec
// §5 "shared-resource RWMutex policy").
type ParamCache struct {
	mu      sync.RWMutex
	order   *list.List // front = most recently used
	entries map[string]*list.Element
}

// NewParamCache returns an empty cache.
func NewParamCache() *ParamCache {
	return &ParamCache{
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns the cached value for uuid, promoting it to most-recently-used
// on hit.
func (c *ParamCache) Get(uuid string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[uuid]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*paramEntry).value, true
}

// Put inserts or updates uuid's cached value, evicting the least-recently-
// used entry if the cache is at capacity.
func (c *ParamCache) Put(uuid string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[uuid]; ok {
		el.Value.(*paramEntry).value = value
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&paramEntry{uuid: uuid, value: value})
	c.entries[uuid] = el

	if c.order.Len() > paramCacheCap {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*paramEntry).uuid)
		}
	}
}

// Len reports the number of cached entries.
func (c *ParamCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

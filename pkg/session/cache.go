package session

import (
	"container/list"
	"sync"

	"github.com/velum-io/tabular/pkg/table"
)

// resultCache keeps computed frames keyed by table identity, evicting
// the least recently used entries once the byte budget is exceeded.
type resultCache struct {
	mu    sync.Mutex
	limit int64
	used  int64
	order *list.List
	items map[*table.Table]*list.Element
}

type cacheEntry struct {
	key   *table.Table
	frame *table.Frame
	size  int64
}

func newResultCache(limit int64) *resultCache {
	return &resultCache{
		limit: limit,
		order: list.New(),
		items: make(map[*table.Table]*list.Element),
	}
}

func (c *resultCache) get(key *table.Table) (*table.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).frame, true
}

func (c *resultCache) put(key *table.Table, f *table.Frame) {
	size := frameBytes(f)
	if size > c.limit {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*cacheEntry)
		c.used += size - entry.size
		entry.frame, entry.size = f, size
		c.order.MoveToFront(el)
	} else {
		c.items[key] = c.order.PushFront(&cacheEntry{key: key, frame: f, size: size})
		c.used += size
	}

	for c.used > c.limit {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*cacheEntry)
		c.order.Remove(oldest)
		delete(c.items, entry.key)
		c.used -= entry.size
	}
}

func (c *resultCache) bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[*table.Table]*list.Element)
	c.used = 0
}

// frameBytes estimates the memory a frame occupies. Strings count their
// length, everything else a fixed word cost; the estimate only has to be
// stable enough for eviction ordering.
func frameBytes(f *table.Frame) int64 {
	if f == nil {
		return 0
	}
	var total int64
	for _, col := range f.Columns() {
		values, _ := f.Column(col)
		for _, v := range values {
			switch value := v.(type) {
			case string:
				total += int64(len(value)) + 16
			case nil:
				total += 8
			default:
				total += 24
			}
		}
	}
	for _, idx := range f.Index() {
		total += int64(len(idx)) + 16
	}
	return total
}

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TTL is a size-bounded LRU cache whose entries expire after a fixed
// duration. Concurrent misses for the same key share one load.
type TTL[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	// loads tracks keys with a GetOrLoad in flight. Delete bumps gen so a
	// load that started earlier is not stored. Entries go away with the
	// last caller.
	loads map[string]*loadState
	group singleflight.Group
	now   func() time.Time
}

type loadState struct {
	gen     uint64
	callers int
}

type entry[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func NewTTL[T any](maxSize int, ttl time.Duration) *TTL[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &TTL[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		loads:   make(map[string]*loadState),
		now:     time.Now,
	}
}

func (c *TTL[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	item := elem.Value.(*entry[T])
	if !c.now().Before(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *TTL[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, data)
}

func (c *TTL[T]) set(key string, data T) {
	item := &entry[T]{key: key, data: data, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}
	c.items[key] = c.lru.PushFront(item)
	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete drops key and discards any load for it still in flight.
func (c *TTL[T]) Delete(key string) {
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	if st, ok := c.loads[key]; ok {
		st.gen++
	}
	c.mu.Unlock()
	c.group.Forget(key)
}

// GetOrLoad returns the cached value or calls load once for all concurrent
// callers of the same key. Load errors are not cached.
func (c *TTL[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if data, ok := c.Get(key); ok {
		return data, nil
	}
	c.mu.Lock()
	st, ok := c.loads[key]
	if !ok {
		st = &loadState{}
		c.loads[key] = st
	}
	st.callers++
	started := st.gen
	c.mu.Unlock()
	defer c.release(key, st)

	value, err, _ := c.group.Do(key, func() (any, error) {
		data, err := load(ctx)
		if err != nil {
			return data, err
		}
		c.mu.Lock()
		if st.gen == started {
			c.set(key, data)
		}
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}

func (c *TTL[T]) release(key string, st *loadState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st.callers--
	if st.callers == 0 && c.loads[key] == st {
		delete(c.loads, key)
	}
}

func (c *TTL[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*entry[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

func (c *TTL[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

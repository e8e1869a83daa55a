// Package cache provides the fixed-capacity per-user cache used by every
// ephemeral store in the engine. Entries past the capacity ceiling are
// evicted oldest-first; the cache is the in-process source of truth, with
// durable storage behind it advisory only.
package cache

import "container/list"

// DefaultCapacity bounds memory under unbounded user growth.
const DefaultCapacity = 5000

// Bounded is a fixed-capacity map keyed by user ID.
type Bounded[V any] struct {
	capacity int
	order    *list.List // front = oldest
	entries  map[int64]*list.Element
}

type entry[V any] struct {
	key   int64
	value V
}

// New returns a bounded cache; non-positive capacities fall back to
// DefaultCapacity.
func New[V any](capacity int) *Bounded[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bounded[V]{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[int64]*list.Element),
	}
}

func (c *Bounded[V]) Get(key int64) (V, bool) {
	if elem, ok := c.entries[key]; ok {
		return elem.Value.(*entry[V]).value, true
	}
	var zero V
	return zero, false
}

func (c *Bounded[V]) Set(key int64, value V) {
	if elem, ok := c.entries[key]; ok {
		elem.Value.(*entry[V]).value = value
		c.order.MoveToBack(elem)
		return
	}
	c.entries[key] = c.order.PushBack(&entry[V]{key: key, value: value})
	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry[V]).key)
	}
}

func (c *Bounded[V]) Delete(key int64) {
	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
}

func (c *Bounded[V]) Len() int {
	return c.order.Len()
}

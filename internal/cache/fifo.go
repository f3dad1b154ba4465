package cache

import (
	"container/list"
	"sync"
)

// FIFO is a bounded ResultCache that evicts in insertion order.
type FIFO struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
	capacity int
}

type fifoEntry struct {
	key     string
	summary string
}

// NewFIFO creates a cache holding at most capacity entries. A non-positive
// capacity falls back to DefaultCapacity.
func NewFIFO(capacity int) *FIFO {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &FIFO{
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
	}
}

func (c *FIFO) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}

	return elem.Value.(*fifoEntry).summary, true
}

// Put inserts or updates key. Updating an existing key keeps its original
// insertion position.
func (c *FIFO) Put(key, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*fifoEntry).summary = summary

		return
	}

	if len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}

	c.entries[key] = c.order.PushBack(&fifoEntry{key: key, summary: summary})
}

func (c *FIFO) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
}

func (c *FIFO) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

func (c *FIFO) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Capacity returns the configured bound.
func (c *FIFO) Capacity() int {
	return c.capacity
}

// keys returns the cached keys from oldest to newest.
func (c *FIFO) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*fifoEntry).key)
	}

	return keys
}

func (c *FIFO) evictOldestLocked() {
	if elem := c.order.Front(); elem != nil {
		c.removeElement(elem)
	}
}

func (c *FIFO) removeElement(elem *list.Element) {
	delete(c.entries, elem.Value.(*fifoEntry).key)
	c.order.Remove(elem)
}

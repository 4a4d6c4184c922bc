// Package pipecache memoizes compiled render pipeline states by the
// fingerprint of their descriptor.
//
// Keys are 64-bit fingerprints the caller computes over everything that
// feeds pipeline compilation. The cache is sharded and safe for
// concurrent use, and evicts least recently used entries per shard.
package pipecache

import (
	"sync"
	"sync/atomic"
)

const (
	// shardCount must be a power of 2 so shard selection is a mask.
	shardCount = 16

	// DefaultCapacity is the per-shard entry limit when the caller
	// passes a non-positive capacity.
	DefaultCapacity = 64

	shardMask = shardCount - 1
)

// Cache maps pipeline fingerprints to compiled states of type V.
type Cache[V any] struct {
	shards   [shardCount]*shard[V]
	capacity int

	hits     atomic.Uint64
	misses   atomic.Uint64
	failures atomic.Uint64
}

type shard[V any] struct {
	mu      sync.Mutex
	entries map[uint64]*entry[V]
	lru     lruList
}

type entry[V any] struct {
	value V
	node  *lruNode
}

// New creates a cache holding up to capacity entries per shard.
func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache[V]{capacity: capacity}
	for i := range c.shards {
		c.shards[i] = &shard[V]{entries: make(map[uint64]*entry[V])}
	}
	return c
}

// Fingerprints are already well-mixed FNV output, so the low bits pick
// the shard directly.
func (c *Cache[V]) shardFor(key uint64) *shard[V] {
	return c.shards[key&shardMask]
}

// Get returns the cached state for a fingerprint.
func (c *Cache[V]) Get(key uint64) (V, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.lru.MoveToFront(e.node)
	v := e.value
	s.mu.Unlock()
	c.hits.Add(1)
	return v, true
}

// GetOrCreate returns the cached state for a fingerprint, compiling it
// with create on a miss. A failed create is not cached, so a later call
// retries compilation. create runs with the shard locked, which also
// serializes duplicate compilations of the same fingerprint.
func (c *Cache[V]) GetOrCreate(key uint64, create func() (V, error)) (V, error) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.lru.MoveToFront(e.node)
		c.hits.Add(1)
		return e.value, nil
	}
	c.misses.Add(1)

	v, err := create()
	if err != nil {
		c.failures.Add(1)
		var zero V
		return zero, err
	}

	for s.lru.Len() >= c.capacity {
		old, ok := s.lru.RemoveOldest()
		if !ok {
			break
		}
		delete(s.entries, old)
	}
	s.entries[key] = &entry[V]{value: v, node: s.lru.PushFront(key)}
	return v, nil
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[uint64]*entry[V])
		s.lru.Clear()
		s.mu.Unlock()
	}
}

// Len returns the total entry count across shards.
func (c *Cache[V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Stats is a point-in-time snapshot of cache behavior.
type Stats struct {
	Len      int
	Hits     uint64
	Misses   uint64
	Failures uint64
}

// Stats returns hit, miss and compile-failure counts.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Len:      c.Len(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failures.Load(),
	}
}

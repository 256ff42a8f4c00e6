// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache implements a bounded least-recently-used cache.
package cache // import "safeapp.io/cache"

// Derived from https://github.com/golang/build/blob/master/internal/lru/cache.go

import (
	"container/list"
	"sync"
)

// LRU is a least-recently used cache, safe for concurrent access.
type LRU[K comparable, V any] struct {
	maxEntries int

	mu    sync.Mutex
	ll    *list.List
	cache map[K]*list.Element
}

// *entry is the type stored in each *list.Element.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU returns a new cache with the provided maximum items.
func NewLRU[K comparable, V any](maxEntries int) *LRU[K, V] {
	return &LRU[K, V]{
		maxEntries: maxEntries,
		ll:         list.New(),
		cache:      make(map[K]*list.Element),
	}
}

// Add adds the provided key and value to the cache, evicting
// an old item if necessary. If an item was evicted its key is
// returned with evicted set.
func (c *LRU[K, V]) Add(key K, value V) (old K, evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Already in cache?
	if ee, ok := c.cache[key]; ok {
		c.ll.MoveToFront(ee)
		ee.Value.(*entry[K, V]).value = value
		return old, false
	}

	// Add to cache if not present
	ele := c.ll.PushFront(&entry[K, V]{key, value})
	c.cache[key] = ele

	if c.ll.Len() > c.maxEntries {
		old, _, evicted = c.removeOldest()
	}
	return old, evicted
}

// Get fetches the key's value from the cache.
// The ok result will be true if the item was found.
func (c *LRU[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.cache[key]; hit {
		c.ll.MoveToFront(ele)
		return ele.Value.(*entry[K, V]).value, true
	}
	return
}

// Contains reports whether key is in the cache without
// updating its recency.
func (c *LRU[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.cache[key]
	return ok
}

// Remove removes the key's entry and returns its value and whether it was present.
func (c *LRU[K, V]) Remove(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ele, hit := c.cache[key]
	if !hit {
		return
	}
	c.ll.Remove(ele)
	delete(c.cache, key)
	return ele.Value.(*entry[K, V]).value, true
}

// RemoveOldest removes the oldest item in the cache and returns its key and value.
// If the cache is empty, ok is false.
func (c *LRU[K, V]) RemoveOldest() (key K, value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeOldest()
}

// note: must hold c.mu
func (c *LRU[K, V]) removeOldest() (key K, value V, ok bool) {
	ele := c.ll.Back()
	if ele == nil {
		return
	}
	c.ll.Remove(ele)
	ent := ele.Value.(*entry[K, V])
	delete(c.cache, ent.key)
	return ent.key, ent.value, true
}

// Len returns the number of items in the cache.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

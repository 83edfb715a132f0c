// Copyright (C) 2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc fetches the value for a key on a cache miss
type FetchFunc[K comparable, V any] func(key K) (V, error)

// FIFOCache is a bounded cache that evicts in insertion order. Concurrent
// fetches for the same key are deduplicated.
type FIFOCache[K comparable, V any] struct {
	lock     sync.RWMutex
	data     map[K]V
	queue    []K
	capacity int
	sfGroup  singleflight.Group
}

func NewFIFOCache[K comparable, V any](capacity int) *FIFOCache[K, V] {
	return &FIFOCache[K, V]{
		data:     make(map[K]V, capacity),
		queue:    make([]K, 0, capacity),
		capacity: capacity,
	}
}

// Get returns the cached value for a key, fetching it on a miss. Only one
// fetch runs per key at a time; concurrent callers share its result.
func (c *FIFOCache[K, V]) Get(key K, fetchFunc FetchFunc[K, V]) (V, error) {
	c.lock.RLock()
	if value, ok := c.data[key]; ok {
		c.lock.RUnlock()
		return value, nil
	}
	c.lock.RUnlock()

	value, err, _ := c.sfGroup.Do(keyToString(key), func() (interface{}, error) {
		newValue, err := fetchFunc(key)
		if err != nil {
			return *new(V), err
		}

		c.lock.Lock()
		c.set(key, newValue)
		c.lock.Unlock()

		return newValue, nil
	})
	if err != nil {
		return *new(V), err
	}
	return value.(V), nil
}

// set records a value, evicting the oldest entry at capacity. The caller
// holds the write lock.
func (c *FIFOCache[K, V]) set(key K, value V) {
	if _, ok := c.data[key]; ok {
		c.data[key] = value
		return
	}

	if len(c.queue) >= c.capacity {
		oldest := c.queue[0]
		c.queue = c.queue[1:]
		delete(c.data, oldest)
	}

	c.data[key] = value
	c.queue = append(c.queue, key)
}

// Len returns the number of cached values
func (c *FIFOCache[K, V]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.data)
}

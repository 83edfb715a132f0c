// Copyright (C) 2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"sync"

	"github.com/luxfi/geth/common/lru"
)

// LRUCache keeps the most recently used values up to a fixed size. The Get
// interface matches TTLCache without expiry, for immutable data.
type LRUCache[K comparable, V any] struct {
	cache *lru.Cache[K, V]
	lock  sync.RWMutex
}

func NewLRUCache[K comparable, V any](size int) *LRUCache[K, V] {
	return &LRUCache[K, V]{
		cache: lru.NewCache[K, V](size),
	}
}

// Get returns the cached value for a key, fetching it on a miss. If
// [invalidate] is true the key is dropped before fetching.
func (c *LRUCache[K, V]) Get(key K, fetchFunc func(K) (V, error), invalidate bool) (V, error) {
	if invalidate {
		c.lock.Lock()
		c.cache.Remove(key)
		c.lock.Unlock()
	} else {
		c.lock.RLock()
		if value, found := c.cache.Get(key); found {
			c.lock.RUnlock()
			return value, nil
		}
		c.lock.RUnlock()
	}

	newValue, err := fetchFunc(key)
	if err != nil {
		var zero V
		return zero, err
	}

	c.lock.Lock()
	c.cache.Add(key, newValue)
	c.lock.Unlock()

	return newValue, nil
}

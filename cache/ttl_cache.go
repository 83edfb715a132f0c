// Copyright (C) 2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type ttlItem[V any] struct {
	value     V
	timestamp time.Time
}

// TTLCache caches values with a per-key time to live and single-flight fetch
type TTLCache[K comparable, V any] struct {
	data    map[K]ttlItem[V]
	ttl     time.Duration
	lock    sync.RWMutex
	sfGroup singleflight.Group
}

func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		data: make(map[K]ttlItem[V]),
		ttl:  ttl,
	}
}

// Get returns the cached value for a key if it is still fresh, fetching it
// otherwise. Concurrent fetches for the same key are deduplicated. If
// [invalidate] is true the key is dropped before fetching, so no caller reads
// the stale value while the fetch is in flight.
func (c *TTLCache[K, V]) Get(key K, fetchFunc func(K) (V, error), invalidate bool) (V, error) {
	if invalidate {
		c.lock.Lock()
		delete(c.data, key)
		c.lock.Unlock()
	} else {
		c.lock.RLock()
		item, exists := c.data[key]
		c.lock.RUnlock()
		if exists && time.Since(item.timestamp) < c.ttl {
			return item.value, nil
		}
	}

	value, err, _ := c.sfGroup.Do(keyToString(key), func() (interface{}, error) {
		newValue, err := fetchFunc(key)
		if err != nil {
			return *new(V), err
		}

		c.lock.Lock()
		c.data[key] = ttlItem[V]{
			value:     newValue,
			timestamp: time.Now(),
		}
		c.lock.Unlock()

		return newValue, nil
	})
	if err != nil {
		return *new(V), err
	}
	return value.(V), nil
}

// keyToString admits both fmt.Stringer and primitive key types
func keyToString[K comparable](key K) string {
	if s, ok := any(key).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", key)
}

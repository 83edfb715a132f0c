package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheHitAndExpiry(t *testing.T) {
	require := require.New(t)

	cache := NewTTLCache[string, int](100 * time.Millisecond)
	fetches := 0
	fetch := func(string) (int, error) {
		fetches++
		return 42, nil
	}

	val, err := cache.Get("session", fetch, false)
	require.NoError(err)
	require.Equal(42, val)
	require.Equal(1, fetches)

	// Within the TTL the cached value is served
	val, err = cache.Get("session", fetch, false)
	require.NoError(err)
	require.Equal(42, val)
	require.Equal(1, fetches)

	// After the TTL the value is fetched again
	time.Sleep(150 * time.Millisecond)
	_, err = cache.Get("session", fetch, false)
	require.NoError(err)
	require.Equal(2, fetches)
}

func TestTTLCacheInvalidate(t *testing.T) {
	require := require.New(t)

	cache := NewTTLCache[string, int](time.Minute)
	fetches := 0
	fetch := func(string) (int, error) {
		fetches++
		return fetches, nil
	}

	val, err := cache.Get("session", fetch, false)
	require.NoError(err)
	require.Equal(1, val)

	// Invalidation drops the fresh value and refetches
	val, err = cache.Get("session", fetch, true)
	require.NoError(err)
	require.Equal(2, val)
	require.Equal(2, fetches)
}

func TestTTLCacheDoesNotCacheErrors(t *testing.T) {
	require := require.New(t)

	cache := NewTTLCache[string, int](time.Minute)
	fetches := 0
	fetch := func(string) (int, error) {
		fetches++
		if fetches == 1 {
			return 0, errors.New("not ready")
		}
		return 7, nil
	}

	_, err := cache.Get("session", fetch, false)
	require.Error(err)

	// The failed fetch left nothing behind, so the next call retries
	val, err := cache.Get("session", fetch, false)
	require.NoError(err)
	require.Equal(7, val)
	require.Equal(2, fetches)
}

func TestTTLCacheSharesConcurrentFetch(t *testing.T) {
	require := require.New(t)

	cache := NewTTLCache[ids.ID, int](time.Minute)
	var fetches atomic.Int64
	gate := make(chan struct{})
	fetch := func(ids.ID) (int, error) {
		fetches.Add(1)
		<-gate
		return 42, nil
	}

	key := ids.GenerateTestID()
	const callers = 8
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err := cache.Get(key, fetch, false)
			require.NoError(err)
			require.Equal(42, val)
		}()
	}

	// Let every caller pile onto the in-flight fetch before releasing it
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(int64(1), fetches.Load())
}

// Package ristretto provides an adapter for the Ristretto cache library,
// implementing the r9y.Cache interface for use with r9y.StaleCache and
// r9y.CacheProvider.
package ristretto

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/byte4ever/r9y"
)

type (
	// Key is the subset of ristretto.Key types that are also comparable,
	// required by the r9y.Cache interface.
	Key interface {
		uint64 | string | byte | int | int32 | uint32 | int64
	}

	// adapter wraps a ristretto.Cache to implement r9y.Cache.
	adapter[K Key, V any] struct {
		cache *ristretto.Cache[K, V]
	}
)

// MustNew creates an r9y.Cache backed by a Ristretto cache.
// K must satisfy [Key] (comparable subset of ristretto key types).
// MaxSize from [r9y.CacheConfig] configures the cache capacity.
// Ristretto recommends NumCounters = 10 * MaxSize for good performance.
// It panics if the underlying Ristretto cache cannot be built.
func MustNew[K Key, V any](cfg r9y.CacheConfig) r9y.Cache[K, V] {
	cache, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters: int64(cfg.MaxSize) * 10,
		MaxCost:     int64(cfg.MaxSize),
		BufferItems: 64,
	})
	if err != nil {
		panic("r9y/ristretto: failed to build cache: " + err.Error())
	}

	return &adapter[K, V]{cache: cache}
}

// Get retrieves a cached value by key.
func (a *adapter[K, V]) Get(key K) (V, bool) {
	return a.cache.Get(key)
}

// Set stores a value with the given TTL.
func (a *adapter[K, V]) Set(key K, value V, ttl time.Duration) {
	a.cache.SetWithTTL(key, value, 1, ttl)
	a.cache.Wait()
}

// Delete removes a cached entry by key.
func (a *adapter[K, V]) Delete(key K) {
	a.cache.Del(key)
}

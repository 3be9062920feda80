// Package otter provides an adapter for the Otter cache library,
// implementing the r9y.Cache interface for use with r9y.StaleCache and
// r9y.CacheProvider.
package otter

import (
	"time"

	"github.com/maypok86/otter"

	"github.com/byte4ever/r9y"
)

// adapter wraps an otter.CacheWithVariableTTL to implement r9y.Cache.
type adapter[K comparable, V any] struct {
	cache otter.CacheWithVariableTTL[K, V]
}

// MustNew creates an r9y.Cache backed by an Otter cache with per-entry TTL
// support. MaxSize from [r9y.CacheConfig] configures the underlying cache
// capacity. It panics if the underlying Otter cache cannot be built.
func MustNew[K comparable, V any](cfg r9y.CacheConfig) r9y.Cache[K, V] {
	cache, err := otter.MustBuilder[K, V](cfg.MaxSize).
		WithVariableTTL().
		Build()
	if err != nil {
		panic("r9y/otter: failed to build cache: " + err.Error())
	}

	return &adapter[K, V]{cache: cache}
}

// Get retrieves a cached value by key.
func (a *adapter[K, V]) Get(key K) (V, bool) {
	return a.cache.Get(key)
}

// Set stores a value with the given TTL.
func (a *adapter[K, V]) Set(key K, value V, ttl time.Duration) {
	a.cache.Set(key, value, ttl)
}

// Delete removes a cached entry by key.
func (a *adapter[K, V]) Delete(key K) {
	a.cache.Delete(key)
}

package cachemanager

import (
	"context"
	"sync/atomic"
	"time"
)

// ReadThroughCache fills a CacheManager from a loader on miss. With
// bypass set every call goes straight to the loader and nothing is
// stored.
//
// Invalidate must be called alongside every eviction: a load that was
// already running when the entry was evicted returns its value to the
// caller but does not write it back, so a slow read never resurrects a
// listing that a concurrent write made stale.
type ReadThroughCache[K ~string, V any, I any] struct {
	cache  CacheManager[K, V]
	load   func(ctx context.Context, input I) (V, error)
	bypass bool
	gen    atomic.Uint64
}

func NewReadThroughCache[K ~string, V any, I any](
	cache CacheManager[K, V],
	load func(ctx context.Context, input I) (V, error),
	bypass bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{cache: cache, load: load, bypass: bypass}
}

// Invalidate marks loads in flight as stale.
func (r *ReadThroughCache[K, V, I]) Invalidate() {
	r.gen.Add(1)
}

// Get returns the cached value for key, loading it on miss.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if !r.bypass {
		if v, ok := r.cache.Get(ctx, key); ok {
			return v, nil
		}
	}
	return r.fill(ctx, key, input, ttl)
}

// GetWithRefresh is Get, but a hit also pushes the entry's expiry out
// by ttl.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if !r.bypass {
		if v, ok := r.cache.GetWithRefresh(ctx, key, ttl); ok {
			return v, nil
		}
	}
	return r.fill(ctx, key, input, ttl)
}

func (r *ReadThroughCache[K, V, I]) fill(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	started := r.gen.Load()
	v, err := r.load(ctx, input)
	if err != nil || r.bypass {
		return v, err
	}
	if r.gen.Load() == started {
		r.cache.Set(ctx, key, v, ttl)
	}
	return v, nil
}

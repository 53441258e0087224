// Package cachemanager provides typed, TTL-bound caches for section
// listings and per-browser flash notifications.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed key/value cache with per-entry lifetimes.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	// Take returns the value and removes it in one step.
	Take(ctx context.Context, key K) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	// DeletePrefix removes every key starting with prefix and reports how many went.
	DeletePrefix(ctx context.Context, prefix K) int
	Flush(ctx context.Context) error
	Len() int
}

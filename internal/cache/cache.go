// Package cache fronts the bolt databases with a bounded in memory cache.
package cache

type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Add(key K, value V)
	Keys() []K
	Delete(key K)
	Purge()
}

// Package cache wraps an LRU TTL cache behind a small generic interface so
// callers (role resolution, artifact loading) can swap implementations.
package cache

import (
	"time"

	"github.com/karlseguin/ccache/v3"
)

// Cache is a generic key/value cache. Entry lifetime is a property of the
// cache, not of individual Set calls.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Clear()
	Len() int
}

type memoryCache[T any] struct {
	backend *ccache.Cache[T]
	ttl     time.Duration
}

// NewMemory returns an in-memory cache bounded to size entries; entries
// expire after ttl.
func NewMemory[T any](size int64, ttl time.Duration) Cache[T] {
	return &memoryCache[T]{
		backend: ccache.New(ccache.Configure[T]().MaxSize(size)),
		ttl:     ttl,
	}
}

func (c *memoryCache[T]) Get(key string) (T, bool) {
	item := c.backend.Get(key)
	if item == nil || item.Expired() {
		var zero T
		return zero, false
	}
	return item.Value(), true
}

func (c *memoryCache[T]) Set(key string, value T) {
	c.backend.Set(key, value, c.ttl)
}

func (c *memoryCache[T]) Delete(key string) {
	c.backend.Delete(key)
}

func (c *memoryCache[T]) Clear() {
	c.backend.Clear()
}

func (c *memoryCache[T]) Len() int {
	return c.backend.ItemCount()
}

package cache_test

import (
	"testing"
	"time"

	"github.com/privaccess/go-privaccess-auth/cache"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	c := cache.NewMemory[string](10, 2*time.Second)

	c.Set("door:101", "t1q7hk")

	val, ok := c.Get("door:101")
	require.True(t, ok)
	require.Equal(t, "t1q7hk", val)
}

func TestEntriesExpire(t *testing.T) {
	c := cache.NewMemory[string](10, 50*time.Millisecond)

	c.Set("short", "lived")
	time.Sleep(120 * time.Millisecond)

	_, ok := c.Get("short")
	require.False(t, ok, "expected 'short' to be expired")
}

func TestDelete(t *testing.T) {
	c := cache.NewMemory[int](10, 10*time.Second)

	c.Set("k", 7)
	c.Delete("k")

	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestClearAndLen(t *testing.T) {
	c := cache.NewMemory[string](10, 5*time.Second)

	c.Set("a", "1")
	c.Set("b", "2")
	require.Equal(t, 2, c.Len())

	c.Clear()
	require.Equal(t, 0, c.Len())

	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestMissingKey(t *testing.T) {
	c := cache.NewMemory[string](10, time.Second)
	_, ok := c.Get("never-set")
	require.False(t, ok)
}

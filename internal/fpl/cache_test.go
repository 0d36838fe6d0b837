// ABOUTME: Tests for the TTL response cache
// ABOUTME: Covers expiry, refresh on overwrite, oldest-first eviction and sweeping

package fpl

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration, size int) (*Cache, *time.Time) {
	t.Helper()
	c := NewCache(ttl, size)
	t.Cleanup(c.Close)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_GetMissing(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 10)
	_, ok := c.Get("/fixtures/")
	assert.False(t, ok)
}

func TestCache_SetThenGet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 10)
	c.Set("/fixtures/", []byte("[]"))

	body, ok := c.Get("/fixtures/")
	require.True(t, ok)
	assert.Equal(t, "[]", string(body))
}

func TestCache_Expiry(t *testing.T) {
	c, now := newTestCache(t, time.Minute, 10)
	c.Set("k", []byte("v"))

	*now = now.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	*now = now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCache_OverwriteRefreshes(t *testing.T) {
	c, now := newTestCache(t, time.Minute, 10)
	c.Set("k", []byte("old"))
	*now = now.Add(50 * time.Second)
	c.Set("k", []byte("new"))
	*now = now.Add(50 * time.Second)

	body, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", string(body))
	assert.Equal(t, 1, c.Len())
}

func TestCache_EvictsOldest(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 2)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("a", []byte("1'"))
	c.Set("c", []byte("3"))

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.True(t, okA, "a was refreshed and should survive")
	assert.False(t, okB, "b is the oldest and should be evicted")
	assert.True(t, okC)
}

func TestCache_Sweep(t *testing.T) {
	c, now := newTestCache(t, time.Minute, 10)
	c.Set("a", []byte("1"))
	*now = now.Add(30 * time.Second)
	c.Set("b", []byte("2"))
	*now = now.Add(45 * time.Second)

	c.sweep()
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("b")
	assert.True(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCache(time.Minute, 50)
	defer c.Close()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			key := string(rune('a' + i%5))
			c.Set(key, []byte{byte(i)})
			_, _ = c.Get(key)
		})
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 5)
}

func TestCache_CloseTwice(t *testing.T) {
	c := NewCache(time.Minute, 1)
	c.Close()
	assert.NotPanics(t, c.Close)
}

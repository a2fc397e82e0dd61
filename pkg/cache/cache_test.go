package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGetExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New[string](time.Minute, 0)
	c.now = func() time.Time { return now }

	c.Set("openai", "sk-1")
	v, ok := c.Get("openai")
	assert.True(t, ok)
	assert.Equal(t, "sk-1", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("openai")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Count())

	assert.Equal(t, 1, c.deleteExpired())
	assert.Zero(t, c.Count())
}

func TestZeroTTLNeverExpires(t *testing.T) {
	now := time.Now()
	c := New[int](0, 0)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(24 * time.Hour)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestMaxItemsEvictsSoonestExpiry(t *testing.T) {
	now := time.Now()
	c := New[int](time.Minute, 2)
	c.now = func() time.Time { return now }

	c.Set("first", 1)
	now = now.Add(time.Second)
	c.Set("second", 2)
	now = now.Add(time.Second)
	c.Set("third", 3)

	assert.Equal(t, 2, c.Count())
	_, ok := c.Get("first")
	assert.False(t, ok)

	// overwriting an existing key does not evict
	c.Set("third", 33)
	assert.Equal(t, 2, c.Count())
}

func TestDeleteAndFlush(t *testing.T) {
	c := New[string](time.Minute, 0)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Flush()
	assert.Zero(t, c.Count())
}

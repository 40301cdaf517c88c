package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet_RoundTrip(t *testing.T) {
	m := NewMemory(16)
	defer m.Stop()

	m.Set("analysis:GME", []byte(`{"symbol":"GME"}`), time.Minute)

	val, ok := m.Get("analysis:GME")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"symbol":"GME"}`), val)
}

func TestMemory_Get_MissingKey(t *testing.T) {
	m := NewMemory(16)
	defer m.Stop()

	val, ok := m.Get("analysis:AMC")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestMemory_Get_ExpiredEntry(t *testing.T) {
	m := NewMemory(16)
	defer m.Stop()

	m.Set("analysis:GME", []byte("stale"), 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, ok := m.Get("analysis:GME")
	assert.False(t, ok)
}

func TestMemory_Set_ZeroTTLNeverExpires(t *testing.T) {
	m := NewMemory(16)
	defer m.Stop()

	m.Set("analysis:GME", []byte("pinned"), 0)
	time.Sleep(15 * time.Millisecond)

	val, ok := m.Get("analysis:GME")
	require.True(t, ok)
	assert.Equal(t, []byte("pinned"), val)
}

func TestMemory_Set_CopiesValue(t *testing.T) {
	m := NewMemory(16)
	defer m.Stop()

	payload := []byte("original")
	m.Set("analysis:GME", payload, time.Minute)
	payload[0] = 'X'

	val, ok := m.Get("analysis:GME")
	require.True(t, ok)
	assert.Equal(t, []byte("original"), val)
}

func TestMemory_Set_EvictsLeastRecentlyUsed(t *testing.T) {
	m := NewMemory(2)
	defer m.Stop()

	m.Set("first", []byte("1"), time.Minute)
	time.Sleep(2 * time.Millisecond)
	m.Set("second", []byte("2"), time.Minute)
	time.Sleep(2 * time.Millisecond)

	// Touch "first" so "second" becomes the eviction candidate.
	_, ok := m.Get("first")
	require.True(t, ok)
	time.Sleep(2 * time.Millisecond)

	m.Set("third", []byte("3"), time.Minute)

	_, ok = m.Get("second")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = m.Get("first")
	assert.True(t, ok)
	_, ok = m.Get("third")
	assert.True(t, ok)
}

func TestMemory_Set_OverwriteDoesNotEvict(t *testing.T) {
	m := NewMemory(2)
	defer m.Stop()

	m.Set("first", []byte("1"), time.Minute)
	m.Set("second", []byte("2"), time.Minute)
	m.Set("second", []byte("2b"), time.Minute)

	_, ok := m.Get("first")
	assert.True(t, ok)
	val, ok := m.Get("second")
	require.True(t, ok)
	assert.Equal(t, []byte("2b"), val)
	assert.Equal(t, int64(0), m.Stats().Evictions)
}

func TestMemory_Stats_CountsHitsAndMisses(t *testing.T) {
	m := NewMemory(16)
	defer m.Stop()

	m.Set("analysis:GME", []byte("x"), time.Minute)
	m.Get("analysis:GME")
	m.Get("analysis:GME")
	m.Get("analysis:AMC")

	stats := m.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestMemory_Clear_ResetsEverything(t *testing.T) {
	m := NewMemory(16)
	defer m.Stop()

	m.Set("analysis:GME", []byte("x"), time.Minute)
	m.Get("analysis:GME")
	m.Clear()

	_, ok := m.Get("analysis:GME")
	assert.False(t, ok)
	stats := m.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, 0, stats.Entries)
}

func TestNewAuto_SelectsBackend(t *testing.T) {
	t.Run("memory without REDIS_ADDR", func(t *testing.T) {
		t.Setenv("REDIS_ADDR", "")

		c := NewAuto()
		mem, ok := c.(*Memory)
		require.True(t, ok, "expected in-memory cache, got %T", c)
		mem.Stop()
	})

	t.Run("redis with REDIS_ADDR", func(t *testing.T) {
		t.Setenv("REDIS_ADDR", "localhost:6379")

		c := NewAuto()
		_, ok := c.(*redisCache)
		assert.True(t, ok, "expected redis cache, got %T", c)
	})
}

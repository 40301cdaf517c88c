package cache

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds the in-memory cache size. Analyses are cached one
// per symbol, so even a very large watchlist stays far below this.
const DefaultMaxEntries = 4096

// cleanupInterval is how often the expiry sweep runs.
const cleanupInterval = time.Minute

// Memory is an in-memory TTL cache with least-recently-used eviction at
// capacity.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	maxEntries int
	stats      Stats

	stopCh   chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	value    []byte
	expires  time.Time // zero means no expiry
	accessed time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
}

// NewMemory creates an in-memory cache holding at most maxEntries values.
// Non-positive maxEntries falls back to DefaultMaxEntries.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	m := &Memory{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get returns the value stored under key when present and unexpired.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || entry.expired(time.Now()) {
		m.stats.Misses++
		return nil, false
	}

	entry.accessed = time.Now()
	m.stats.Hits++
	return entry.value, true
}

// Set stores a copy of val under key. A non-positive ttl means the entry
// never expires. At capacity the least recently used entry is evicted first.
func (m *Memory) Set(key string, val []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; !ok && len(m.entries) >= m.maxEntries {
		m.evictOldest()
	}

	entry := &memoryEntry{
		value:    append([]byte(nil), val...),
		accessed: time.Now(),
	}
	if ttl > 0 {
		entry.expires = time.Now().Add(ttl)
	}
	m.entries[key] = entry
}

// Stats returns a point-in-time copy of the effectiveness counters.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.stats
	stats.Entries = len(m.entries)
	return stats
}

// Clear removes every entry and resets the counters.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*memoryEntry)
	m.stats = Stats{}
}

// Stop shuts down the expiry sweep goroutine. Safe to call more than once.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// evictOldest removes the least recently accessed entry. Caller holds the
// lock.
func (m *Memory) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range m.entries {
		if oldestKey == "" || entry.accessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.accessed
		}
	}

	if oldestKey != "" {
		delete(m.entries, oldestKey)
		m.stats.Evictions++
	}
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

// removeExpired drops every expired entry in one pass.
func (m *Memory) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
		}
	}
}

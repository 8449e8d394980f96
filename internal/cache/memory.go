package cache

import (
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	createdAt time.Time
}

// Memory is an in-process Store used as the default fallback and in tests
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-memory store with the given TTL
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewMemoryWithClock creates an in-memory store with an injectable clock,
// so tests can advance virtual time instead of sleeping
func NewMemoryWithClock(ttl time.Duration, now func() time.Time) *Memory {
	m := NewMemory(ttl)
	m.now = now
	return m
}

// Get returns the value for key, removing and reporting absent any entry
// older than the TTL
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().Sub(entry.createdAt) > m.ttl {
		delete(m.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key with a fresh timestamp
func (m *Memory) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, createdAt: m.now()}
}

// Invalidate removes key
func (m *Memory) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Package cache stores statistical detector results so repeated scans of
// the same text skip the network round trip. Entries are opaque bytes with a
// time to live.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a key/value cache with per-entry expiry. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process Store bounded by entry count. When full, expired
// entries are swept and, if still full, an arbitrary entry is evicted.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	max     int
	now     func() time.Time
}

// NewMemory returns a Memory store holding at most max entries (0 = 10000).
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 10000
	}
	return &Memory{entries: make(map[string]entry), max: max, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok && len(m.entries) >= m.max {
		m.evict()
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Len is the number of entries, including expired ones not yet swept.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close() error { return nil }

// evict must be called with mu held.
func (m *Memory) evict() {
	now := m.now()
	for k, e := range m.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
	if len(m.entries) < m.max {
		return
	}
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}

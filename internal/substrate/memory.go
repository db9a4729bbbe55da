package substrate

import (
	"slices"
	"strings"
	"sync"
)

// Memory is a non-durable Substrate backed by a Go map.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
	used  int64
	quota int64
}

// MemoryOption configures a Memory substrate.
type MemoryOption func(*Memory)

// WithQuota limits total usage to limit bytes. Zero means unlimited.
func WithQuota(limit int64) MemoryOption {
	return func(m *Memory) {
		m.quota = limit
	}
}

// NewMemory creates an empty in-memory substrate.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{items: make(map[string]string)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Substrate.
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// Set implements Substrate.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var old int64
	if prev, ok := m.items[key]; ok {
		old = Usage(key, prev)
	}
	next := Usage(key, value)
	if err := CheckQuota(key, m.used, old, next, m.quota); err != nil {
		return err
	}

	m.items[key] = value
	m.used += next - old
	return nil
}

// Remove implements Substrate.
func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.items[key]; ok {
		m.used -= Usage(key, prev)
		delete(m.items, key)
	}
	return nil
}

// Keys implements Substrate. Keys are returned in sorted order.
func (m *Memory) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// KeysWithPrefix implements PrefixScanner.
func (m *Memory) KeysWithPrefix(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Len implements Substrate.
func (m *Memory) Len() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

// Used returns the current usage in bytes.
func (m *Memory) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

// Clear removes every entry.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]string)
	m.used = 0
}

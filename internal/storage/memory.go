package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of CacheStore
type MemoryStore struct {
	mu              sync.RWMutex
	entries         map[string]*Entry // keyed by group + ":" + key
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
	now             func() time.Time
}

// NewMemoryStore creates a new in-memory cache store
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		entries:         make(map[string]*Entry),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	// Start background cleanup goroutine
	go store.cleanupLoop()

	return store
}

func memoryKey(group, key string) string {
	return group + ":" + key
}

// Get retrieves a live value
func (m *MemoryStore) Get(_ context.Context, group, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[memoryKey(group, key)]
	m.mu.RUnlock()

	if !ok || entry.Expired(m.now()) {
		return nil, false, nil
	}

	value := make([]byte, len(entry.Value))
	copy(value, entry.Value)
	return value, true, nil
}

// Set stores a value. A non-positive ttl never expires.
func (m *MemoryStore) Set(_ context.Context, group, key string, value []byte, ttl time.Duration) error {
	now := m.now()
	entry := &Entry{
		Value:     append([]byte(nil), value...),
		CreatedAt: now,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	m.mu.Lock()
	m.entries[memoryKey(group, key)] = entry
	m.mu.Unlock()

	return nil
}

// Ping always succeeds for the in-memory store
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Cleanup removes expired entries
func (m *MemoryStore) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
		}
	}
}

// Size returns the number of stored entries, including expired ones not yet cleaned up
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the cleanup goroutine
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() { close(m.stopCleanup) })
	return nil
}

// cleanupLoop periodically removes expired entries
func (m *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

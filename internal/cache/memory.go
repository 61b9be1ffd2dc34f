package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value      []byte
	insertedAt time.Time
	ttl        time.Duration
}

// Memory is the default in-process cache. Expiry is lazy: an entry past its
// TTL is dropped on the next access that touches it.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
}

// NewMemory creates an in-memory cache. A non-positive defaultTTL falls
// back to DefaultTTL.
func NewMemory(defaultTTL time.Duration) *Memory {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Memory{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if m.now().Sub(e.insertedAt) >= e.ttl {
		m.mu.Lock()
		// re-check under the write lock, the entry may have been replaced
		if cur, ok := m.entries[key]; ok && cur.insertedAt.Equal(e.insertedAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.mu.Lock()
	m.entries[key] = entry{value: value, insertedAt: m.now(), ttl: ttl}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Invalidate(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		for key := range m.entries {
			if strings.HasPrefix(key, prefix) {
				delete(m.entries, key)
			}
		}
		return nil
	}
	delete(m.entries, pattern)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
	return nil
}

// Len reports the number of live and expired entries still held. Exposed
// for tests and the health endpoint.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

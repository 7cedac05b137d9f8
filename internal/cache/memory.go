package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. Entries vanish with the process.
type Memory struct {
	mu    sync.RWMutex
	items map[string]Entry
	ttl   time.Duration
	now   func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates a memory store; ttl <= 0 uses DefaultTTL.
func NewMemory(ttl time.Duration, now func() time.Time) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Memory{items: make(map[string]Entry), ttl: ttl, now: now}
}

func (m *Memory) Set(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = Entry{
		CreatedAt: m.now().Unix(),
		Data:      append([]byte(nil), payload...),
	}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.items[key]
	if !exists {
		return nil, false, nil
	}

	if Expired(item.CreatedAt, m.now(), m.ttl) {
		delete(m.items, key)
		return nil, false, nil
	}

	return append([]byte(nil), item.Data...), true, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *Memory) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, item := range m.items {
		if Expired(item.CreatedAt, now, m.ttl) {
			delete(m.items, key)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]Entry)
	return nil
}

// Len reports stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process ResponseCache. Expired entries are dropped on
// read and swept on write once the map grows past sweepAt entries.
type Memory struct {
	clock   clock.Clock
	sweepAt int

	mu    sync.RWMutex
	items map[string]entry
}

func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Memory{
		clock:   clk,
		sweepAt: 1024,
		items:   make(map[string]entry),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := m.clock.Now()

	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !now.Before(it.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.items[key]; ok && cur.expiresAt.Equal(it.expiresAt) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), it.value...), true, nil
}

// Set stores value for ttl. A non-positive ttl stores nothing.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) >= m.sweepAt {
		for k, it := range m.items {
			if !now.Before(it.expiresAt) {
				delete(m.items, k)
			}
		}
	}
	m.items[key] = entry{value: append([]byte(nil), value...), expiresAt: now.Add(ttl)}
	return nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

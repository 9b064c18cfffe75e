package filestore

import (
	"context"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"
)

type entry struct {
	data     []byte
	storedAt time.Time
}

// Memory is a bounded in-process store. Entries expire ttl after their last Put;
// when full, the oldest entry is evicted.
type Memory struct {
	mu         sync.Mutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]entry
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(ttl time.Duration, maxEntries int, opts ...MemoryOption) *Memory {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	m := &Memory{
		now:        time.Now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    map[string]entry{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Put(_ context.Context, data []byte) (string, error) {
	id := ContentID(data)
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)
	if _, ok := m.entries[id]; !ok && len(m.entries) >= m.maxEntries {
		m.evictOldestLocked()
	}
	m.entries[id] = entry{data: buf, storedAt: now}
	return id, nil
}

func (m *Memory) Get(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, errors.WithStack(ErrNotFound)
	}
	if m.expired(e, m.now()) {
		delete(m.entries, id)
		return nil, errors.WithStack(ErrNotFound)
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep drops expired entries and reports how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

func (m *Memory) sweepLocked(now time.Time) int {
	removed := 0
	for id, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

func (m *Memory) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, e := range m.entries {
		if oldestID == "" || e.storedAt.Before(oldest) {
			oldestID, oldest = id, e.storedAt
		}
	}
	if oldestID != "" {
		delete(m.entries, oldestID)
	}
}

func (m *Memory) expired(e entry, now time.Time) bool {
	return !now.Before(e.storedAt.Add(m.ttl))
}

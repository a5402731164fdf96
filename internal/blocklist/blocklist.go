// Package blocklist maintains the set of blocked identifiers.
//
// Both user IDs and phone numbers are valid keys and are checked
// independently. The set is append-only at runtime; removal is an explicit
// administrative action exposed to operator tooling.
package blocklist

import (
	"context"
	"sync"
)

// Blocklist is the shared set of blocked identifiers. Adds must be
// idempotent regardless of concurrent duplicate adds.
type Blocklist interface {
	Add(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Contains(ctx context.Context, id string) (bool, error)
	Size(ctx context.Context) (int, error)
}

// Memory is the in-process Blocklist implementation.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]struct{}
}

// NewMemory creates an empty in-memory blocklist.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]struct{})}
}

func (m *Memory) Add(_ context.Context, id string) error {
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = struct{}{}
	return nil
}

func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *Memory) Contains(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[id]
	return ok, nil
}

func (m *Memory) Size(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

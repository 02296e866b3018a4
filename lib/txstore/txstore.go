// Package txstore persists serialized transaction snapshots between
// requests, keyed by transaction id. The zero configuration choice is
// the in-process Memory store; Bolt keeps transactions on disk so they
// survive restarts.
package txstore

import (
	"context"
	"sync"
)

// Store loads and saves snapshot payloads by transaction id. Load
// returns (nil, nil) for an unknown id.
type Store interface {
	Load(ctx context.Context, tid string) ([]byte, error)
	Save(ctx context.Context, tid string, data []byte) error
	Delete(ctx context.Context, tid string) error
}

// Memory is a Store held in process memory. It is safe for concurrent
// use.
type Memory struct {
	mu   sync.RWMutex
	snap map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{snap: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, tid string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.snap[tid]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Save(_ context.Context, tid string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.snap[tid] = cp
	return nil
}

func (m *Memory) Delete(_ context.Context, tid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snap, tid)
	return nil
}
